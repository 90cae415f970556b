package config

import "net/url"

// RedactURL replaces the password in a PostgreSQL connection URL with "***".
// If the URL cannot be parsed or carries no password, it is returned unchanged.
func RedactURL(raw string) string {
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}

	if _, hasPassword := u.User.Password(); !hasPassword {
		return raw
	}

	u.User = url.UserPassword(u.User.Username(), "***")

	return u.String()
}
