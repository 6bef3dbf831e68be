package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAccessTokenTTL defines the validity period for tokens minted by GenerateAccessToken.
const DefaultAccessTokenTTL = time.Hour

// RoleService marks tokens issued to trusted backends rather than end users.
const RoleService = "service_role"

// JWTConfig bundles the configuration required to build a JWTService.
type JWTConfig struct {
	Secret         string
	Issuer         string
	Audience       string
	AccessTokenTTL time.Duration
	Clock          func() time.Time
}

// Claims mirrors the access tokens issued by the hosted auth service.
// UserID is taken from the subject claim.
type Claims struct {
	UserID    string `json:"-"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	jwt.RegisteredClaims
}

// IsService reports whether the token belongs to a backend caller.
func (c *Claims) IsService() bool {
	return c != nil && c.Role == RoleService
}

// AccessTokenInput holds the parameters used when generating a new access token.
type AccessTokenInput struct {
	UserID    string
	Email     string
	Role      string
	SessionID string
}

// JWTService validates HS256 access tokens shared with the hosted auth service.
type JWTService struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
	parser   *jwt.Parser
}

// NewJWTService constructs a JWTService instance when provided with the required configuration.
func NewJWTService(cfg JWTConfig) (*JWTService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt: secret must be provided")
	}

	ttl := cfg.AccessTokenTTL
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	svc := &JWTService{
		secret:   []byte(cfg.Secret),
		issuer:   strings.TrimSpace(cfg.Issuer),
		audience: strings.TrimSpace(cfg.Audience),
		ttl:      ttl,
		now:      now,
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return svc.now() }),
		jwt.WithExpirationRequired(),
	}
	if svc.issuer != "" {
		opts = append(opts, jwt.WithIssuer(svc.issuer))
	}
	if svc.audience != "" {
		opts = append(opts, jwt.WithAudience(svc.audience))
	}
	svc.parser = jwt.NewParser(opts...)
	return svc, nil
}

// GenerateAccessToken signs a token in the hosted auth format. Used by tests and tooling.
func (s *JWTService) GenerateAccessToken(input AccessTokenInput) (string, error) {
	role := strings.TrimSpace(input.Role)
	if role == "" {
		role = "authenticated"
	}
	if input.UserID == "" && role != RoleService {
		return "", errors.New("jwt: user id is required")
	}

	now := s.now()
	claims := &Claims{
		Email:     input.Email,
		Role:      role,
		SessionID: input.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   input.UserID,
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}

	return signed, nil
}

// ValidateAccessToken parses and validates a signed JWT. End-user tokens must carry a subject.
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("jwt: token string is empty")
	}

	var claims Claims
	if _, err := s.parser.ParseWithClaims(tokenString, &claims, s.key); err != nil {
		return nil, fmt.Errorf("jwt: parse token: %w", err)
	}

	claims.UserID = strings.TrimSpace(claims.Subject)
	if claims.UserID == "" && !claims.IsService() {
		return nil, errors.New("jwt: missing subject claim")
	}

	return &claims, nil
}

func (s *JWTService) key(*jwt.Token) (any, error) {
	return s.secret, nil
}
