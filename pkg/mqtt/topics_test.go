package mqtt

import "testing"

func TestThemeTopic(t *testing.T) {
	tests := []struct {
		prefix   string
		location string
		expected string
	}{
		{"worldcss", "default", "worldcss/theme/default"},
		{"worldcss/", "New York", "worldcss/theme/new-york"},
		{"home/displays", "hall/left", "home/displays/theme/hall-left"},
		{"worldcss", "", "worldcss/theme/default"},
		{"worldcss", "a+b#c", "worldcss/theme/a-b-c"},
	}

	for _, tt := range tests {
		if got := ThemeTopic(tt.prefix, tt.location); got != tt.expected {
			t.Errorf("ThemeTopic(%q, %q) = %q, expected %q", tt.prefix, tt.location, got, tt.expected)
		}
	}
}

func TestThemeWildcard(t *testing.T) {
	if got := ThemeWildcard("worldcss"); got != "worldcss/theme/+" {
		t.Errorf("Expected worldcss/theme/+, got %s", got)
	}
}

func TestStatusTopic(t *testing.T) {
	if got := StatusTopic("worldcss/", "WorldCSS Agent"); got != "worldcss/status/worldcss-agent" {
		t.Errorf("Expected worldcss/status/worldcss-agent, got %s", got)
	}
}
