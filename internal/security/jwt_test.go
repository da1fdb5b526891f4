package security

import (
	"errors"
	"testing"
	"time"
)

func TestAdminTokenRoundTrip(t *testing.T) {
	token, errSign := GenerateAdminToken("secret", 7, "root", time.Hour)
	if errSign != nil {
		t.Fatalf("sign: %v", errSign)
	}

	claims, errParse := ParseAdminToken("secret", token)
	if errParse != nil {
		t.Fatalf("parse: %v", errParse)
	}
	if claims.AdminID != 7 || claims.Username != "root" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestAdminTokenWrongSecret(t *testing.T) {
	token, errSign := GenerateAdminToken("secret", 7, "root", time.Hour)
	if errSign != nil {
		t.Fatalf("sign: %v", errSign)
	}
	if _, errParse := ParseAdminToken("other", token); !errors.Is(errParse, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", errParse)
	}
}

func TestAdminTokenExpired(t *testing.T) {
	token, errSign := GenerateAdminToken("secret", 7, "root", -time.Minute)
	if errSign != nil {
		t.Fatalf("sign: %v", errSign)
	}
	if _, errParse := ParseAdminToken("secret", token); !errors.Is(errParse, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", errParse)
	}
}

func TestPasswordHashAndCheck(t *testing.T) {
	hash, errHash := HashPassword("hunter22")
	if errHash != nil {
		t.Fatalf("hash: %v", errHash)
	}
	if !CheckPassword(hash, "hunter22") {
		t.Fatalf("correct password must verify")
	}
	if CheckPassword(hash, "nope") {
		t.Fatalf("wrong password must not verify")
	}
}
