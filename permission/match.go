package permission

import "strings"

// matchGlob checks a pattern against a value. Only a trailing '*' is
// supported ("webhook:*" matches "webhook:manage").
func matchGlob(pattern, value string) bool {
	if pattern == "*" || pattern == value {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(value, strings.TrimSuffix(pattern, "*"))
	}
	return false
}

// matchCapability matches a table pattern against a capability name.
// Patterns without a resource separator only match exactly or as "*".
func matchCapability(pattern, capability string) bool {
	if pattern == "" {
		return false
	}
	if strings.HasSuffix(pattern, ":*") || pattern == "*" {
		return matchGlob(pattern, capability)
	}
	return pattern == capability
}
