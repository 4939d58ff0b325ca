// Package client is the HTTP client for the checkout service and the gateway card tokenizer. It
// satisfies the interfaces the checkout package consumes.
package client

import (
	"context"
	"strings"
	"sync"
)

// CredentialProvider supplies the order access token sent with every order-scoped call.
type CredentialProvider interface {
	OrderToken(ctx context.Context, orderID string) (string, error)
}

// TokenSaver is implemented by providers that want to keep the token issued on order creation.
type TokenSaver interface {
	SaveOrderToken(orderID, token string)
}

type CredentialFunc func(ctx context.Context, orderID string) (string, error)

func (f CredentialFunc) OrderToken(ctx context.Context, orderID string) (string, error) {
	return f(ctx, orderID)
}

// TokenStore keeps access tokens per order in memory.
type TokenStore struct {
	mu     sync.RWMutex
	tokens map[string]string
}

func NewTokenStore() *TokenStore {
	return &TokenStore{tokens: make(map[string]string)}
}

func (s *TokenStore) OrderToken(_ context.Context, orderID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens[strings.TrimSpace(orderID)], nil
}

func (s *TokenStore) SaveOrderToken(orderID, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[strings.TrimSpace(orderID)] = token
}
