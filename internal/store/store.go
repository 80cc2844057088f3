package store

import (
	"context"
	"errors"

	"github.com/sujalbistaa/whisperwall/internal/models"
)

// ErrNotFound means the referenced record does not exist. It is distinct
// from validation failures and from the matcher's empty result, which is
// a normal state and not an error at all.
var ErrNotFound = errors.New("record not found")

// Store is the persistence interface the rest of the app talks to.
type Store interface {
	// Identities
	ResolveIdentity(ctx context.Context, key string) (*models.Identity, error)
	RewardIdentity(ctx context.Context, key string, delta int) error
	BanIdentity(ctx context.Context, key string) error

	// Whispers
	CreateWhisper(ctx context.Context, w *models.Whisper) error
	GetWhisper(ctx context.Context, id uint) (*models.Whisper, error)
	DeleteWhisper(ctx context.Context, id uint) error
	ListRecentWhispers(ctx context.Context, limit int) ([]models.Whisper, error)
	MatchPool(ctx context.Context, requesterKey, room string, limit int) ([]models.Whisper, error)

	// Replies
	CreateReply(ctx context.Context, r *models.Reply) error
	ListReplies(ctx context.Context, whisperID uint) ([]models.Reply, error)

	// Reports
	ReportWhisper(ctx context.Context, id uint) error
	ReportReply(ctx context.Context, id uint) error

	// Lifecycle
	Close() error
}
