package app

import (
	"strings"

	"github.com/charlesng35/sosrelay/internal/auth"
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	return auth.JWTConfig{
		Secret:   c.JWTSecret,
		Issuer:   strings.TrimSpace(c.Issuer),
		Audience: strings.TrimSpace(c.Audience),
	}
}
