// Package identity handles opaque access keys: format validation, lazy
// resolution into an Identity record, key minting, and the reward table.
package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"regexp"

	"github.com/sujalbistaa/whisperwall/internal/models"
)

// Point rewards per action. Points only ever go up; there is no spending.
const (
	WhisperReward = 1
	ReplyReward   = 5
)

// ErrMalformedKey is returned before any lookup when a key does not match
// the expected shape. A malformed key never creates an Identity.
var ErrMalformedKey = errors.New("malformed access key")

// Keys look like WSPR-A1B2-C3D4-E5F6: a fixed prefix and three groups of
// four uppercase alphanumerics.
var keyPattern = regexp.MustCompile(`^WSPR(-[A-Z0-9]{4}){3}$`)

const keyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ValidKey reports whether key is well-formed.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}

// MintKey generates a fresh well-formed access key.
func MintKey() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("minting key: %w", err)
	}
	for i, b := range buf {
		buf[i] = keyAlphabet[int(b)%len(keyAlphabet)]
	}
	return fmt.Sprintf("WSPR-%s-%s-%s", buf[0:4], buf[4:8], buf[8:12]), nil
}

// Store is the slice of the persistence layer the resolver needs.
type Store interface {
	ResolveIdentity(ctx context.Context, key string) (*models.Identity, error)
}

// Resolver validates keys and lazily creates identities on first sight.
type Resolver struct {
	store Store
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the Identity behind key, creating a zero-point,
// non-banned record for a previously-unseen key. Banned identities still
// resolve; degrading their responses is the caller's job.
func (r *Resolver) Resolve(ctx context.Context, key string) (*models.Identity, error) {
	if !ValidKey(key) {
		return nil, ErrMalformedKey
	}
	return r.store.ResolveIdentity(ctx, key)
}
