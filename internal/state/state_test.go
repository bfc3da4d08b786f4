package state

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/Caooin/DigiGlucose-Insight/internal/config"
	"github.com/Caooin/DigiGlucose-Insight/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
)

// exerciseStore checks the overwrite contract shared by every backend.
func exerciseStore(t *testing.T, store domain.ConversationStore, userID uint) {
	t.Helper()
	ctx := context.Background()
	session := uuid.NewString()

	got, err := store.GetState(ctx, userID, session)
	if err != nil || got != nil {
		t.Fatalf("empty session = %+v, %v", got, err)
	}

	first := &domain.ConversationState{
		UserID:       userID,
		SessionID:    session,
		CurrentTopic: domain.IntentRecordGlucose,
		Intent:       domain.IntentRecordGlucose,
		Sentiment:    domain.SentimentNeutral,
		Slots:        datatypes.JSON(`{"glucose_value":5.2}`),
	}
	if err := store.SaveState(ctx, first); err != nil {
		t.Fatalf("SaveState: %v", err)
	}
	created := first.CreatedAt

	second := &domain.ConversationState{
		UserID:       userID,
		SessionID:    session,
		CurrentTopic: domain.IntentAskEducation,
		Intent:       domain.IntentAskEducation,
		Sentiment:    domain.SentimentAnxious,
	}
	if err := store.SaveState(ctx, second); err != nil {
		t.Fatalf("SaveState: %v", err)
	}

	got, err = store.GetState(ctx, userID, session)
	if err != nil || got == nil {
		t.Fatalf("GetState = %+v, %v", got, err)
	}
	if got.Intent != domain.IntentAskEducation || got.Sentiment != domain.SentimentAnxious || len(got.Slots) != 0 {
		t.Errorf("state should reflect only the second save: %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("created at changed: %v -> %v", created, got.CreatedAt)
	}

	other, _ := store.GetState(ctx, userID+1, session)
	if other != nil {
		t.Errorf("sessions must be scoped per user: %+v", other)
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	exerciseStore(t, store, 1)
	if store.Len() != 1 {
		t.Errorf("Len = %d, want 1", store.Len())
	}
}

func TestMemoryStore_CopiesSlots(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	state := &domain.ConversationState{UserID: 1, SessionID: "s", Slots: datatypes.JSON(`{"a":1}`)}
	if err := store.SaveState(ctx, state); err != nil {
		t.Fatal(err)
	}
	state.Slots[2] = 'b'

	got, _ := store.GetState(ctx, 1, "s")
	if string(got.Slots) != `{"a":1}` {
		t.Errorf("stored slots mutated: %s", got.Slots)
	}
}

func TestStateKey(t *testing.T) {
	if got := stateKey(42, "tg:7:2025-06-18"); got != "user:42:session:tg:7:2025-06-18:state" {
		t.Errorf("stateKey = %q", got)
	}
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("cannot reserve a port: %v", err)
	}
	host, port, _ := net.SplitHostPort(ln.Addr().String())
	ln.Close()

	if _, err := NewRedisStore(config.RedisConfig{Host: host, Port: port}); err == nil {
		t.Error("expected connection error")
	}
}

// TestRedisStore runs against a live server when REDIS_ADDR is set.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	store := NewRedisStoreWithClient(client, time.Minute)
	t.Cleanup(func() { store.Close() })

	exerciseStore(t, store, uint(time.Now().UnixNano()%1_000_000)+1)
}
