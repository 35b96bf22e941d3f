// Package auth validates the bearer keys accepted by the trigger server.
// Only SHA-256 hashes of keys are ever configured or held in memory.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrInvalidAPIKey is returned for unknown keys.
var ErrInvalidAPIKey = errors.New("invalid API key")

// Client is the caller identified by an API key.
type Client struct {
	KeyHash     string
	Description string
}

// Authenticator validates API keys against a set of key hashes.
type Authenticator struct {
	clients map[string]*Client // keyhash -> client
}

// NewAuthenticator creates a new authenticator from configured key hashes.
func NewAuthenticator(clients []Client) *Authenticator {
	a := &Authenticator{
		clients: make(map[string]*Client, len(clients)),
	}
	for i := range clients {
		c := clients[i]
		c.KeyHash = strings.ToLower(strings.TrimSpace(c.KeyHash))
		a.clients[c.KeyHash] = &c
	}
	return a
}

// Empty reports whether no keys are configured.
func (a *Authenticator) Empty() bool {
	return a == nil || len(a.clients) == 0
}

// ValidateAPIKey validates an API key and returns the associated client.
func (a *Authenticator) ValidateAPIKey(apiKey string) (*Client, error) {
	keyHash := HashAPIKey(apiKey)

	c, ok := a.clients[keyHash]
	if !ok {
		return nil, ErrInvalidAPIKey
	}

	// Constant-time comparison to prevent timing attacks
	if subtle.ConstantTimeCompare([]byte(keyHash), []byte(c.KeyHash)) != 1 {
		return nil, ErrInvalidAPIKey
	}
	return c, nil
}

// ExtractAPIKey extracts the API key from the Authorization header
func ExtractAPIKey(r *http.Request) (string, error) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", fmt.Errorf("missing Authorization header")
	}

	// Support "Bearer <key>" format
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid Authorization header format")
	}

	if strings.ToLower(parts[0]) != "bearer" {
		return "", fmt.Errorf("unsupported authorization scheme")
	}

	return strings.TrimSpace(parts[1]), nil
}

// HashAPIKey creates a SHA-256 hash of an API key for storage
func HashAPIKey(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(hash[:])
}
