package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testIssuer = "https://securetoken.google.com/test-project"

func newJWKSServer(t *testing.T, publicKey rsa.PublicKey) *httptest.Server {
	t.Helper()
	jwk := map[string]string{
		"kty": "RSA",
		"alg": "RS256",
		"kid": "test-key",
		"use": "sig",
		"n":   encodeBigInt(publicKey.N),
		"e":   encodeBigInt(publicKey.E),
	}
	jwksResponse := map[string]any{
		"keys": []any{jwk},
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(jwksResponse)
	}))
}

func signTestToken(t *testing.T, privateKey *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = "test-key"
	signedToken, err := token.SignedString(privateKey)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signedToken
}

func TestVerifyExtractsEmailAndName(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	jwksServer := newJWKSServer(t, privateKey.PublicKey)
	defer jwksServer.Close()

	now := time.Now().UTC()
	signedToken := signTestToken(t, privateKey, jwt.MapClaims{
		"aud":   "test-project",
		"iss":   testIssuer,
		"sub":   "user-123",
		"email": "alice@example.com",
		"name":  "Alice Example",
		"exp":   now.Add(5 * time.Minute).Unix(),
		"iat":   now.Unix(),
	})

	verifier, err := NewTokenVerifier(VerifierConfig{
		Audience:       "test-project",
		JWKSURL:        jwksServer.URL,
		AllowedIssuers: []string{testIssuer},
		HTTPClient:     jwksServer.Client(),
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	verified, err := verifier.Verify(context.Background(), signedToken)
	if err != nil {
		t.Fatalf("expected verification to succeed: %v", err)
	}
	if verified.Email != "alice@example.com" {
		t.Fatalf("unexpected email %s", verified.Email)
	}
	if verified.Name != "Alice Example" {
		t.Fatalf("unexpected name %s", verified.Name)
	}
}

func TestVerifyDefaultsNameToEmailLocalPart(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	jwksServer := newJWKSServer(t, privateKey.PublicKey)
	defer jwksServer.Close()

	now := time.Now().UTC()
	signedToken := signTestToken(t, privateKey, jwt.MapClaims{
		"aud":   "test-project",
		"iss":   testIssuer,
		"sub":   "user-123",
		"email": "bob@example.com",
		"exp":   now.Add(5 * time.Minute).Unix(),
		"iat":   now.Unix(),
	})

	verifier, err := NewTokenVerifier(VerifierConfig{
		Audience:       "test-project",
		JWKSURL:        jwksServer.URL,
		AllowedIssuers: []string{testIssuer},
		HTTPClient:     jwksServer.Client(),
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	verified, err := verifier.Verify(context.Background(), signedToken)
	if err != nil {
		t.Fatalf("expected verification to succeed: %v", err)
	}
	if verified.Name != "bob" {
		t.Fatalf("expected name to default to local part, got %s", verified.Name)
	}
}

func TestVerifyRejectsTokenWithoutEmail(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	jwksServer := newJWKSServer(t, privateKey.PublicKey)
	defer jwksServer.Close()

	now := time.Now().UTC()
	signedToken := signTestToken(t, privateKey, jwt.MapClaims{
		"aud": "test-project",
		"iss": testIssuer,
		"sub": "user-123",
		"exp": now.Add(5 * time.Minute).Unix(),
		"iat": now.Unix(),
	})

	verifier, err := NewTokenVerifier(VerifierConfig{
		Audience:       "test-project",
		JWKSURL:        jwksServer.URL,
		AllowedIssuers: []string{testIssuer},
		HTTPClient:     jwksServer.Client(),
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	_, err = verifier.Verify(context.Background(), signedToken)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func TestVerifyReportsExpiredToken(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	jwksServer := newJWKSServer(t, privateKey.PublicKey)
	defer jwksServer.Close()

	now := time.Now().UTC()
	signedToken := signTestToken(t, privateKey, jwt.MapClaims{
		"aud":   "test-project",
		"iss":   testIssuer,
		"sub":   "user-123",
		"email": "alice@example.com",
		"exp":   now.Add(-5 * time.Minute).Unix(),
		"iat":   now.Add(-10 * time.Minute).Unix(),
	})

	verifier, err := NewTokenVerifier(VerifierConfig{
		Audience:       "test-project",
		JWKSURL:        jwksServer.URL,
		AllowedIssuers: []string{testIssuer},
		HTTPClient:     jwksServer.Client(),
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	_, err = verifier.Verify(context.Background(), signedToken)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected expired token error, got %v", err)
	}
}

func TestVerifyRejectsUntrustedIssuer(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	jwksServer := newJWKSServer(t, privateKey.PublicKey)
	defer jwksServer.Close()

	now := time.Now().UTC()
	signedToken := signTestToken(t, privateKey, jwt.MapClaims{
		"aud":   "test-project",
		"iss":   "https://evil.example.com",
		"sub":   "user-123",
		"email": "alice@example.com",
		"exp":   now.Add(5 * time.Minute).Unix(),
		"iat":   now.Unix(),
	})

	verifier, err := NewTokenVerifier(VerifierConfig{
		Audience:       "test-project",
		JWKSURL:        jwksServer.URL,
		AllowedIssuers: []string{testIssuer},
		HTTPClient:     jwksServer.Client(),
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}

	_, err = verifier.Verify(context.Background(), signedToken)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token error for untrusted issuer, got %v", err)
	}
}

func TestNewTokenVerifierValidatesConfig(t *testing.T) {
	_, err := NewTokenVerifier(VerifierConfig{
		Audience:       "",
		JWKSURL:        "https://example.com/jwks",
		AllowedIssuers: []string{testIssuer},
	})
	if !errors.Is(err, ErrInvalidVerifierConfig) {
		t.Fatalf("expected invalid verifier config error, got %v", err)
	}
	if !strings.Contains(err.Error(), errMissingAudienceConfig.Error()) {
		t.Fatalf("expected audience validation error to be reported, got %v", err)
	}

	_, err = NewTokenVerifier(VerifierConfig{
		Audience:       "test-project",
		JWKSURL:        " ",
		AllowedIssuers: []string{testIssuer},
	})
	if !errors.Is(err, ErrInvalidVerifierConfig) {
		t.Fatalf("expected invalid verifier config error, got %v", err)
	}
	if !strings.Contains(err.Error(), errMissingJWKSURL.Error()) {
		t.Fatalf("expected jwks validation error to be reported, got %v", err)
	}

	_, err = NewTokenVerifier(VerifierConfig{
		Audience:       "test-project",
		JWKSURL:        "https://example.com/jwks",
		AllowedIssuers: []string{"", "   "},
	})
	if !errors.Is(err, ErrInvalidVerifierConfig) {
		t.Fatalf("expected invalid verifier config error, got %v", err)
	}
	if !strings.Contains(err.Error(), errNoAllowedIssuers.Error()) {
		t.Fatalf("expected allowed issuers validation error to be reported, got %v", err)
	}
}

func encodeBigInt(value interface{}) string {
	switch v := value.(type) {
	case *big.Int:
		return base64.RawURLEncoding.EncodeToString(v.Bytes())
	case int:
		return encodeBigInt(int64(v))
	case int64:
		return base64.RawURLEncoding.EncodeToString(big.NewInt(v).Bytes())
	case uint64:
		return base64.RawURLEncoding.EncodeToString(new(big.Int).SetUint64(v).Bytes())
	default:
		return ""
	}
}
