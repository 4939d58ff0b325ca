// Package auth issues and checks the bearer tokens that grant a customer access to one order.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenInvalid  = errors.New("order access token is invalid")
	ErrTokenMismatch = errors.New("order access token does not grant this order")
)

var jwtSigningMethod = jwt.SigningMethodHS256

const defaultIssuer = "ms-go-checkout"

type OrderTokenConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

type OrderClaims struct {
	OrderID string `json:"order_id"`
	jwt.RegisteredClaims
}

type OrderTokens struct {
	cfg OrderTokenConfig
}

func NewOrderTokens(cfg OrderTokenConfig) *OrderTokens {
	if strings.TrimSpace(cfg.Issuer) == "" {
		cfg.Issuer = defaultIssuer
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 72 * time.Hour
	}
	return &OrderTokens{cfg: cfg}
}

func (t *OrderTokens) Mint(orderID string, now time.Time) (string, error) {
	if t.cfg.Secret == "" {
		return "", fmt.Errorf("order token secret is required")
	}
	if strings.TrimSpace(orderID) == "" {
		return "", fmt.Errorf("order id is required")
	}

	claims := OrderClaims{
		OrderID: orderID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.cfg.Issuer,
			Subject:   orderID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.cfg.TTL)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(t.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing order token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, issuer and expiry, and that the token was minted for orderID.
func (t *OrderTokens) Verify(tokenString, orderID string) error {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" || t.cfg.Secret == "" {
		return ErrTokenInvalid
	}

	claims := &OrderClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(t.cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(t.cfg.Issuer),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.OrderID != orderID {
		return ErrTokenMismatch
	}
	return nil
}
