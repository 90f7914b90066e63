package jwtinfra

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"

	"github.com/go-trade-client/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the fields the gateway reads from the trading platform's access token.
// The platform has issued the user id under several names over time.
type Claims struct {
	ID      string `json:"id,omitempty"`
	MongoID string `json:"_id,omitempty"`
	UserID  string `json:"user_id,omitempty"`
	Email   string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Identity returns the user id the realtime room and visits are keyed on.
func (c *Claims) Identity() string {
	for _, id := range []string{c.MongoID, c.ID, c.UserID, c.Subject} {
		if id != "" {
			return id
		}
	}
	return ""
}

// Provider verifies RS256 JWTs issued by the trading platform. It never signs.
type Provider struct {
	publicKey *rsa.PublicKey
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	pubBytes, err := os.ReadFile(cfg.JWTPublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	return NewProviderFromPEM(pubBytes)
}

func NewProviderFromPEM(pem []byte) (*Provider, error) {
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pem)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return &Provider{publicKey: pubKey}, nil
}

func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.publicKey, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Identity() == "" {
		return nil, errors.New("token carries no user id")
	}
	return claims, nil
}
