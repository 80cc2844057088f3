// Package match implements the whisper selection policy: a bounded
// ordered candidate query followed by a uniform random pick.
//
// Sorting alone would funnel every requester onto the single loneliest
// whisper; sampling across everything would bury never-replied whispers
// under traffic. Pooling the top candidates and sampling within the pool
// spreads load while still favoring lonely, fresh whispers.
package match

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/sujalbistaa/whisperwall/internal/models"
)

// PoolSize bounds the candidate pool sampled from on each request. Fixed,
// not configurable.
const PoolSize = 50

// PoolSource is the bounded ordered stage: eligible whispers (active,
// under the report threshold, not authored by requesterKey, matching
// room unless it is empty or "all") ordered by reply_count ascending then
// created_at descending, cut off at limit.
type PoolSource interface {
	MatchPool(ctx context.Context, requesterKey, room string, limit int) ([]models.Whisper, error)
}

// Engine picks one whisper per request from a PoolSource.
type Engine struct {
	source PoolSource

	mu  sync.Mutex // rand.Rand is not safe for concurrent use
	rng *rand.Rand
}

// NewEngine builds an engine. A nil rng gets a time-seeded one; tests
// pass a fixed seed.
func NewEngine(source PoolSource, rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{source: source, rng: rng}
}

// SelectWhisper returns one whisper for requesterKey to reply to, or nil
// when nothing is eligible. A nil result is a normal empty state, not an
// error: an unknown room filter simply yields an empty room.
func (e *Engine) SelectWhisper(ctx context.Context, requesterKey, room string) (*models.Whisper, error) {
	pool, err := e.source.MatchPool(ctx, requesterKey, room, PoolSize)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, nil
	}
	w := pool[e.pick(len(pool))]
	return &w, nil
}

// pick returns a uniform index in [0, n).
func (e *Engine) pick(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Intn(n)
}
