package match

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sujalbistaa/whisperwall/internal/models"
	"github.com/sujalbistaa/whisperwall/internal/store"
)

const (
	keyRequester = "WSPR-REQQ-REQQ-REQQ"
	keyAuthor    = "WSPR-AUTH-AUTH-AUTH"
)

// stubSource serves a fixed pool and records how it was queried.
type stubSource struct {
	pool     []models.Whisper
	err      error
	gotKey   string
	gotRoom  string
	gotLimit int
}

func (s *stubSource) MatchPool(ctx context.Context, requesterKey, room string, limit int) ([]models.Whisper, error) {
	s.gotKey = requesterKey
	s.gotRoom = room
	s.gotLimit = limit
	return s.pool, s.err
}

func TestSelectWhisperEmptyPool(t *testing.T) {
	engine := NewEngine(&stubSource{}, rand.New(rand.NewSource(1)))

	w, err := engine.SelectWhisper(context.Background(), keyRequester, models.RoomAll)
	if err != nil {
		t.Fatalf("empty pool must not be an error, got %v", err)
	}
	if w != nil {
		t.Errorf("expected no match, got whisper %d", w.ID)
	}
}

func TestSelectWhisperQueriesPoolSize(t *testing.T) {
	source := &stubSource{pool: []models.Whisper{{ID: 1}}}
	engine := NewEngine(source, rand.New(rand.NewSource(1)))

	if _, err := engine.SelectWhisper(context.Background(), keyRequester, models.RoomLove); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	if source.gotLimit != PoolSize {
		t.Errorf("queried limit = %d, want %d", source.gotLimit, PoolSize)
	}
	if source.gotKey != keyRequester || source.gotRoom != models.RoomLove {
		t.Errorf("query parameters not passed through: key=%q room=%q", source.gotKey, source.gotRoom)
	}
}

func TestSelectWhisperPropagatesError(t *testing.T) {
	wantErr := errors.New("database exploded")
	engine := NewEngine(&stubSource{err: wantErr}, rand.New(rand.NewSource(1)))

	if _, err := engine.SelectWhisper(context.Background(), keyRequester, models.RoomAll); !errors.Is(err, wantErr) {
		t.Errorf("got %v, want the source error", err)
	}
}

func TestSelectWhisperUniformPick(t *testing.T) {
	pool := make([]models.Whisper, 5)
	for i := range pool {
		pool[i] = models.Whisper{ID: uint(i + 1)}
	}
	engine := NewEngine(&stubSource{pool: pool}, rand.New(rand.NewSource(42)))

	seen := make(map[uint]int)
	for i := 0; i < 500; i++ {
		w, err := engine.SelectWhisper(context.Background(), keyRequester, models.RoomAll)
		if err != nil {
			t.Fatalf("select failed: %v", err)
		}
		if w == nil || w.ID < 1 || w.ID > 5 {
			t.Fatalf("selected whisper outside the pool: %+v", w)
		}
		seen[w.ID]++
	}
	// With a fixed seed every pool member shows up across 500 draws.
	for id := uint(1); id <= 5; id++ {
		if seen[id] == 0 {
			t.Errorf("whisper %d never selected; pick is not spreading across the pool", id)
		}
	}
}

func setupTestStore(t *testing.T) *store.GormStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&models.Identity{}, &models.Whisper{}, &models.Reply{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	st := store.New(db)
	t.Cleanup(func() { st.Close() })
	return st
}

// TestPoolBound checks, against the real store, that the sampled whisper
// always comes from the min(M, 50) candidates with the fewest replies.
func TestPoolBound(t *testing.T) {
	for _, m := range []int{1, 49, 50, 200} {
		t.Run(fmt.Sprintf("M=%d", m), func(t *testing.T) {
			st := setupTestStore(t)
			ctx := context.Background()
			base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

			// Distinct reply counts make the top of the ordering
			// unambiguous: the eligible pool is reply counts 0..min(M,50)-1.
			inPool := make(map[uint]bool)
			bound := m
			if bound > PoolSize {
				bound = PoolSize
			}
			for i := 0; i < m; i++ {
				w := &models.Whisper{
					Mood:       "quiet",
					Text:       "a whisper",
					Room:       models.RoomGeneral,
					AuthorKey:  keyAuthor,
					ReplyCount: i,
					CreatedAt:  base.Add(time.Duration(i) * time.Second),
				}
				if err := st.CreateWhisper(ctx, w); err != nil {
					t.Fatalf("create failed: %v", err)
				}
				if i < bound {
					inPool[w.ID] = true
				}
			}

			// The requester's own whispers would sort to the very top if
			// eligibility did not exclude them.
			for i := 0; i < 5; i++ {
				w := &models.Whisper{
					Mood:      "quiet",
					Text:      "my own whisper",
					Room:      models.RoomGeneral,
					AuthorKey: keyRequester,
					CreatedAt: base,
				}
				if err := st.CreateWhisper(ctx, w); err != nil {
					t.Fatalf("create failed: %v", err)
				}
			}

			engine := NewEngine(st, rand.New(rand.NewSource(7)))
			for i := 0; i < 100; i++ {
				w, err := engine.SelectWhisper(ctx, keyRequester, models.RoomAll)
				if err != nil {
					t.Fatalf("select failed: %v", err)
				}
				if w == nil {
					t.Fatalf("expected a match with %d eligible whispers", m)
				}
				if !inPool[w.ID] {
					t.Fatalf("selected whisper %d (replyCount=%d) outside the top-%d pool", w.ID, w.ReplyCount, bound)
				}
				if w.AuthorKey == keyRequester {
					t.Fatalf("selected the requester's own whisper")
				}
			}
		})
	}
}

// TestPoolTieBreakNewestFirst pins the tie-break: among equally
// under-replied whispers the pool keeps the newest, so the oldest ones
// fall outside it once the bound is hit.
func TestPoolTieBreakNewestFirst(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	const total = 60 // ten more than the pool holds
	excluded := make(map[uint]bool)
	for i := 0; i < total; i++ {
		w := &models.Whisper{
			Mood:      "quiet",
			Text:      "a whisper",
			Room:      models.RoomGeneral,
			AuthorKey: keyAuthor,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := st.CreateWhisper(ctx, w); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		if i < total-PoolSize {
			excluded[w.ID] = true
		}
	}

	engine := NewEngine(st, rand.New(rand.NewSource(7)))
	for i := 0; i < 300; i++ {
		w, err := engine.SelectWhisper(ctx, keyRequester, models.RoomAll)
		if err != nil {
			t.Fatalf("select failed: %v", err)
		}
		if w == nil {
			t.Fatal("expected a match")
		}
		if excluded[w.ID] {
			t.Fatalf("selected whisper %d from outside the 50 newest ties", w.ID)
		}
	}
}

// TestSoleAuthorGetsNoContent: a requester who wrote everything in a room
// gets "no content", not an error.
func TestSoleAuthorGetsNoContent(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		w := &models.Whisper{
			Mood:      "quiet",
			Text:      "talking to myself",
			Room:      models.RoomMidnight,
			AuthorKey: keyRequester,
		}
		if err := st.CreateWhisper(ctx, w); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	engine := NewEngine(st, rand.New(rand.NewSource(7)))
	w, err := engine.SelectWhisper(ctx, keyRequester, models.RoomMidnight)
	if err != nil {
		t.Fatalf("empty eligible set must not error, got %v", err)
	}
	if w != nil {
		t.Errorf("matched the requester's own whisper %d", w.ID)
	}
}
