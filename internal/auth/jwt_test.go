package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	token, err := m.Issue("user-1", "alice")

	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if token == "" {
		t.Fatal("Issue returned empty token")
	}

	claims, err := m.Verify(token)

	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if claims.UserID != "user-1" {
		t.Errorf("got userId %q, want %q", claims.UserID, "user-1")
	}

	if claims.Username != "alice" {
		t.Errorf("got username %q, want %q", claims.Username, "alice")
	}

	ttl := time.Until(claims.ExpiresAt.Time)

	if ttl < 59*time.Minute || ttl > time.Hour {
		t.Errorf("expiry not about one hour out: %v", ttl)
	}
}

func TestVerifyExpired(t *testing.T) {
	m := NewManager("test-secret", -time.Minute)

	token, err := m.Issue("user-1", "alice")

	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	_, err = m.Verify(token)

	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("got %v, want ErrTokenExpired", err)
	}
}

func TestVerifyTamperedSignature(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	token, err := m.Issue("user-1", "alice")

	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	parts := strings.Split(token, ".")

	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %q", token)
	}

	// flip a character in the signature
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = m.Verify(tampered)

	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("got %v, want ErrTokenInvalid", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := NewManager("secret-a", time.Hour)
	verifier := NewManager("secret-b", time.Hour)

	token, err := issuer.Issue("user-1", "alice")

	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	_, err = verifier.Verify(token)

	if !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("got %v, want ErrTokenInvalid", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	for _, tok := range []string{"", "garbage", "a.b.c"} {
		_, err := m.Verify(tok)

		if !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("Verify(%q): got %v, want ErrTokenInvalid", tok, err)
		}
	}
}
