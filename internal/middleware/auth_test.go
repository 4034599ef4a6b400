package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "0123456789abcdef0123"

func newApp(s *JWTService) *fiber.App {
	app := fiber.New()
	app.Post("/upload", RequireJWT(s), func(c *fiber.Ctx) error {
		sub, _ := c.Locals(SubjectKey).(string)
		return c.SendString("ok:" + sub)
	})
	return app
}

func TestNewJWTService_ShortSecret(t *testing.T) {
	if _, err := NewJWTService("short", ""); err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestRequireJWT(t *testing.T) {
	s, err := NewJWTService(testSecret, "media-transcription")
	if err != nil {
		t.Fatal(err)
	}
	valid, err := s.GenerateToken("ops", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	expired, err := s.GenerateToken("ops", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	other, _ := NewJWTService("another-secret-value-xx", "media-transcription")
	forged, _ := other.GenerateToken("ops", time.Hour)

	wrongIssuer, _ := NewJWTService(testSecret, "someone-else")
	foreign, _ := wrongIssuer.GenerateToken("ops", time.Hour)

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "ops"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + valid, fiber.StatusOK},
		{"lowercase scheme", "bearer " + valid, fiber.StatusOK},
		{"missing", "", fiber.StatusUnauthorized},
		{"not bearer", "Basic abc", fiber.StatusUnauthorized},
		{"expired", "Bearer " + expired, fiber.StatusUnauthorized},
		{"wrong secret", "Bearer " + forged, fiber.StatusUnauthorized},
		{"wrong issuer", "Bearer " + foreign, fiber.StatusUnauthorized},
		{"alg none", "Bearer " + none, fiber.StatusUnauthorized},
	}

	app := newApp(s)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/upload", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestRequireJWT_Disabled(t *testing.T) {
	resp, err := newApp(nil).Test(httptest.NewRequest("POST", "/upload", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d, want 200 when auth is disabled", resp.StatusCode)
	}
}
