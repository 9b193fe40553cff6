package logger

import "strings"

// MaskUsername masks a username for log output, keeping the first character
// (e.g. "alice" -> "a****"). Email-shaped usernames keep the domain TLD.
func MaskUsername(username string) string {
	if username == "" {
		return ""
	}

	if at := strings.IndexByte(username, '@'); at > 0 {
		return MaskUsername(username[:at]) + "@" + maskDomain(username[at+1:])
	}

	if len(username) == 1 {
		return "*"
	}
	return string(username[0]) + strings.Repeat("*", len(username)-1)
}

func maskDomain(domain string) string {
	parts := strings.Split(domain, ".")
	if len(parts) < 2 {
		return strings.Repeat("*", len(domain))
	}
	for i := 0; i < len(parts)-1; i++ {
		parts[i] = strings.Repeat("*", len(parts[i]))
	}
	return strings.Join(parts, ".")
}

// SensitiveQuery reports whether a raw query string carries parameters that
// must never reach the logs.
func SensitiveQuery(rawQuery string) bool {
	if rawQuery == "" {
		return false
	}

	sensitiveParams := []string{"password", "token", "reset_token", "current_password", "new_password"}

	lower := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(lower, param+"=") {
			return true
		}
	}
	return false
}
