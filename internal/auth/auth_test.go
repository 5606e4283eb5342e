package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	fbauth "firebase.google.com/go/auth"
	"github.com/golang-jwt/jwt/v5"
)

func signed(t *testing.T, secret, subject string, method jwt.SigningMethod) string {
	t.Helper()
	tok := jwt.NewWithClaims(method, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestRequire(t *testing.T) {
	if _, err := Require(nil); !errors.Is(err, ErrRequired) {
		t.Fatalf("expected ErrRequired for nil provider, got %v", err)
	}
	s := NewSession("")
	if _, err := Require(s); !errors.Is(err, ErrRequired) {
		t.Fatalf("expected ErrRequired, got %v", err)
	}
	s.SignIn("u1")
	if id, err := Require(s); err != nil || id != "u1" {
		t.Fatalf("expected u1, got %q %v", id, err)
	}
}

func TestSessionNotifiesOnChange(t *testing.T) {
	s := NewSession("u1")
	var seen []string
	cancel := s.OnChange(func(id string) { seen = append(seen, id) })
	s.SignIn("u1")
	s.SignIn("u2")
	s.SignOut()
	cancel()
	s.SignIn("u3")
	if len(seen) != 2 || seen[0] != "u2" || seen[1] != "" {
		t.Fatalf("unexpected notifications %v", seen)
	}
}

func TestJWTVerifier(t *testing.T) {
	v := JWTVerifier{Secret: "s3cret"}
	ctx := context.Background()
	id, err := v.Verify(ctx, signed(t, "s3cret", "user-9", jwt.SigningMethodHS256))
	if err != nil || id != "user-9" {
		t.Fatalf("expected user-9, got %q %v", id, err)
	}
	if _, err := v.Verify(ctx, signed(t, "other", "user-9", jwt.SigningMethodHS256)); err == nil {
		t.Fatalf("expected signature error")
	}
	if _, err := v.Verify(ctx, signed(t, "s3cret", "user-9", jwt.SigningMethodHS512)); err == nil {
		t.Fatalf("expected method error")
	}
	if _, err := v.Verify(ctx, signed(t, "s3cret", "", jwt.SigningMethodHS256)); err == nil {
		t.Fatalf("expected subject error")
	}
	if _, err := (JWTVerifier{}).Verify(ctx, "x"); err == nil {
		t.Fatalf("expected missing secret error")
	}
}

type fakeIDTokens map[string]string

func (f fakeIDTokens) VerifyIDToken(_ context.Context, tok string) (*fbauth.Token, error) {
	uid, ok := f[tok]
	if !ok {
		return nil, errors.New("bad token")
	}
	return &fbauth.Token{UID: uid}, nil
}

func TestSignInWithFirebaseToken(t *testing.T) {
	s := NewSession("")
	v := FirebaseVerifier{client: fakeIDTokens{"tok": "fb-user"}}
	id, err := s.SignInWithToken(context.Background(), v, " tok ")
	if err != nil || id != "fb-user" || s.UserID() != "fb-user" {
		t.Fatalf("expected fb-user, got %q %v", id, err)
	}
	if _, err := s.SignInWithToken(context.Background(), v, "nope"); err == nil {
		t.Fatalf("expected verification error")
	}
	if s.UserID() != "fb-user" {
		t.Fatalf("failed sign-in must keep the session")
	}
	if _, err := (FirebaseVerifier{}).Verify(context.Background(), "tok"); err == nil {
		t.Fatalf("expected unconfigured error")
	}
}
