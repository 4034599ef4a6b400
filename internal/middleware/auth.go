package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// SubjectKey is the fiber Locals key holding the authenticated subject
const SubjectKey = "auth_subject"

// JWTService issues and validates HS256 tokens for the API
type JWTService struct {
	secret []byte
	issuer string
}

// NewJWTService creates a service; issuer may be empty
func NewJWTService(secret, issuer string) (*JWTService, error) {
	if len(secret) < 16 {
		return nil, errors.New("jwt secret must be at least 16 characters")
	}
	return &JWTService{secret: []byte(secret), issuer: issuer}, nil
}

// GenerateToken signs a token for subject valid for ttl
func (s *JWTService) GenerateToken(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// ValidateToken parses a token and returns its claims
func (s *JWTService) ValidateToken(tokenString string) (*jwt.RegisteredClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// RequireJWT rejects requests without a valid bearer token. A nil service
// disables the check.
func RequireJWT(s *JWTService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if s == nil {
			return c.Next()
		}

		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return unauthorized(c, "missing authorization header")
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return unauthorized(c, "invalid authorization format")
		}

		claims, err := s.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			return unauthorized(c, "invalid token")
		}

		c.Locals(SubjectKey, claims.Subject)
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": msg,
		"code":  "ERR_UNAUTHORIZED",
	})
}
