package mqtt

import (
	"fmt"
	"strings"
)

// ThemeTopic constructs the topic a resolved theme is published to
// Pattern: {prefix}/theme/{location}
func ThemeTopic(prefix, location string) string {
	return fmt.Sprintf("%s/theme/%s", strings.TrimSuffix(prefix, "/"), TopicSegment(location))
}

// ThemeWildcard matches every location's theme topic under prefix
// Pattern: {prefix}/theme/+
func ThemeWildcard(prefix string) string {
	return fmt.Sprintf("%s/theme/+", strings.TrimSuffix(prefix, "/"))
}

// TopicSegment makes a free-form name safe to use as a single topic level.
// Wildcards and separators are replaced, spaces become dashes, and the
// result is lower-cased.
func TopicSegment(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return "default"
	}
	return strings.NewReplacer("/", "-", "+", "-", "#", "-", " ", "-").Replace(name)
}

// StatusTopic is where a service's retained online/offline state lives
// Pattern: {prefix}/status/{service}
func StatusTopic(prefix, service string) string {
	return fmt.Sprintf("%s/status/%s", strings.TrimSuffix(prefix, "/"), TopicSegment(service))
}
