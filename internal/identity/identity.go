// Package identity resolves the caller of a request from HMAC-signed user ids.
package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"

	"channel-service/internal/models"
	"channel-service/internal/repositories"
)

var (
	ErrMissingCredentials = errors.New("missing identity headers")
	ErrInvalidSignature   = errors.New("invalid user signature")
	ErrUnknownUser        = errors.New("unknown user")
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderSignature = "X-User-Signature"
)

// Sign returns hex(HMAC-SHA256(userID, key)).
func Sign(userID, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(userID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify accepts a signature made with any of keys, so keys can be rotated.
func Verify(userID, signature string, keys []string) bool {
	for _, k := range keys {
		if k == "" {
			continue
		}
		if hmac.Equal([]byte(Sign(userID, k)), []byte(signature)) {
			return true
		}
	}
	return false
}

// Provider authenticates signed user ids against the users table.
type Provider struct {
	users repositories.UserRepository
	keys  []string
}

func NewProvider(users repositories.UserRepository, keys []string) *Provider {
	return &Provider{users: users, keys: keys}
}

// Authenticate verifies signature and loads the user. Inactive users are
// returned without error; the core decides what they may see.
func (p *Provider) Authenticate(ctx context.Context, userID, signature string) (models.User, error) {
	userID = strings.TrimSpace(userID)
	signature = strings.TrimSpace(signature)
	if userID == "" || signature == "" {
		return models.User{}, ErrMissingCredentials
	}
	if !Verify(userID, signature, p.keys) {
		return models.User{}, ErrInvalidSignature
	}

	user, err := p.users.GetUser(ctx, userID)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return models.User{}, ErrUnknownUser
	}
	if err != nil {
		return models.User{}, errors.Wrap(err, "load user")
	}
	return user, nil
}
