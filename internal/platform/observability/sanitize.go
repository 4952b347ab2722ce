package observability

import (
	"strings"
	"unicode"
)

const logStringLimit = 256

// clampLogString strips control characters and caps length so request data
// cannot inject log lines.
func clampLogString(value string, limit int) string {
	if limit <= 0 {
		limit = logStringLimit
	}
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t':
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)
	if runes := []rune(cleaned); len(runes) > limit {
		return string(runes[:limit])
	}
	return cleaned
}

func routeLabel(route string) string {
	if route == "" {
		return "/"
	}
	return clampLogString(route, 180)
}

func methodLabel(method string) string {
	return clampLogString(method, 10)
}

func userLabel(uid string) string {
	if uid == "" {
		return ""
	}
	return clampLogString(uid, 64)
}
