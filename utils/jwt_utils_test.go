package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndValidateJWT(t *testing.T) {
	tok, err := GenerateJWT("ops-1", "ops@example.com", "s3cret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	claims, err := ValidateJWT(tok, "s3cret")
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}
	if claims.Subject != "ops-1" || claims.Email != "ops@example.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestValidateJWTRejects(t *testing.T) {
	good, _ := GenerateJWT("ops", "", "s3cret", time.Hour)
	expired, _ := GenerateJWT("ops", "", "s3cret", -time.Minute)

	cases := []struct {
		name   string
		token  string
		secret string
	}{
		{"wrong secret", good, "other"},
		{"expired", expired, "s3cret"},
		{"garbage", "not-a-token", "s3cret"},
		{"no secret configured", good, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ValidateJWT(tc.token, tc.secret); err == nil {
				t.Fatal("expected an error")
			}
		})
	}

	if _, err := ValidateJWT(expired, "s3cret"); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestGenerateJWTRequiresSecret(t *testing.T) {
	if _, err := GenerateJWT("ops", "", "", time.Hour); err == nil {
		t.Fatal("expected an error without a secret")
	}
}
