package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Nom-nom-hub/World-CSS/pkg/config"
)

type stubClient struct {
	status *HealthStatus
}

func (s stubClient) Connect(context.Context) error { return nil }
func (s stubClient) Disconnect() error             { return nil }
func (s stubClient) Exec(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, nil
}
func (s stubClient) Query(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, nil
}
func (s stubClient) Ping(context.Context) error { return nil }
func (s stubClient) HealthCheck(context.Context) (*HealthStatus, error) {
	return s.status, nil
}

func TestHealthCheckWithoutConnection(t *testing.T) {
	c := NewClient(config.NewConfig(), nil)

	status, err := c.HealthCheck(context.Background())
	assert.NoError(t, err)
	assert.False(t, status.Connected)
	assert.Equal(t, "not connected", status.Error)
	assert.Equal(t, "worldcss", status.Database)

	assert.EqualError(t, Probe(c)(context.Background()), "not connected")
}

func TestProbe(t *testing.T) {
	up := stubClient{status: &HealthStatus{Connected: true}}
	assert.NoError(t, Probe(up)(context.Background()))

	down := stubClient{status: &HealthStatus{Error: "ping failed: refused"}}
	assert.EqualError(t, Probe(down)(context.Background()), "ping failed: refused")
}

func TestQueriesRequireConnection(t *testing.T) {
	c := NewClient(config.NewConfig(), nil)
	ctx := context.Background()

	_, err := c.Exec(ctx, "SELECT 1")
	assert.ErrorIs(t, err, ErrNotConnected)
	_, err = c.Query(ctx, "SELECT 1")
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.ErrorIs(t, c.Ping(ctx), ErrNotConnected)
	assert.NoError(t, c.Disconnect())
}
