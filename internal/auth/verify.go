package auth

import (
	"context"
	"errors"
	"strings"

	fbauth "firebase.google.com/go/auth"
	"github.com/golang-jwt/jwt/v5"
)

// Verifier turns a bearer token into a user id.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// JWTVerifier accepts HS256 tokens whose subject is the user id.
type JWTVerifier struct {
	Secret string
}

func (v JWTVerifier) Verify(_ context.Context, token string) (string, error) {
	if strings.TrimSpace(v.Secret) == "" {
		return "", errors.New("jwt secret not configured")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &jwt.RegisteredClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(v.Secret), nil
	})
	if err != nil {
		return "", err
	}
	if !parsed.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Subject == "" {
		return "", errors.New("subject claim required")
	}
	return claims.Subject, nil
}

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// FirebaseVerifier checks Firebase ID tokens with the Admin SDK.
type FirebaseVerifier struct {
	client idTokenVerifier
}

func NewFirebaseVerifier(client *fbauth.Client) FirebaseVerifier {
	if client == nil {
		return FirebaseVerifier{}
	}
	return FirebaseVerifier{client: client}
}

func (v FirebaseVerifier) Verify(ctx context.Context, token string) (string, error) {
	if v.client == nil {
		return "", errors.New("firebase auth not configured")
	}
	tok, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", err
	}
	if tok.UID == "" {
		return "", errors.New("token has no uid")
	}
	return tok.UID, nil
}
