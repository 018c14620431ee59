package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bazarcheh/bazarcheh-backend/pkg/config"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type mockBlobStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMockBlobStore() *mockBlobStore {
	return &mockBlobStore{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (m *mockBlobStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return nil
}

func (m *mockBlobStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockBlobStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *mockBlobStore) CartSessionKey(sessionID string) string {
	return "cart:session:" + sessionID
}

func testStore(mock *mockBlobStore) *Store {
	return &Store{
		store: mock,
		keyer: mock,
		cfg: config.SessionConfig{
			CookieName: "sid",
			TTL:        time.Hour,
		},
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	mock := newMockBlobStore()
	store := testStore(mock)
	ctx := context.Background()

	first := uuid.New()
	second := uuid.New()
	lines := map[uuid.UUID]CartLine{
		first:  {Quantity: 2, Price: decimal.NewFromInt(120000)},
		second: {Quantity: 5, Price: decimal.RequireFromString("99.50")},
	}

	if err := store.Save(ctx, "sess-1", lines); err != nil {
		t.Fatalf("save: %v", err)
	}
	if mock.ttls[mock.CartSessionKey("sess-1")] != time.Hour {
		t.Fatalf("expected session ttl on the blob")
	}

	loaded, err := store.Load(ctx, "sess-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(loaded))
	}
	if loaded[first].Quantity != 2 || !loaded[first].Price.Equal(decimal.NewFromInt(120000)) {
		t.Fatalf("unexpected first line %+v", loaded[first])
	}
	if loaded[second].Quantity != 5 || !loaded[second].Price.Equal(decimal.RequireFromString("99.50")) {
		t.Fatalf("unexpected second line %+v", loaded[second])
	}
}

func TestLoadMissingSessionReturnsEmpty(t *testing.T) {
	store := testStore(newMockBlobStore())

	loaded, err := store.Load(context.Background(), "nope")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected empty cart, got %v", loaded)
	}
}

func TestLoadCorruptBlobReturnsEmpty(t *testing.T) {
	mock := newMockBlobStore()
	store := testStore(mock)
	mock.data[mock.CartSessionKey("sess-bad")] = "{not json"

	loaded, err := store.Load(context.Background(), "sess-bad")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected empty cart for corrupt blob, got %v", loaded)
	}
}

func TestSaveEmptyCartClearsBlob(t *testing.T) {
	mock := newMockBlobStore()
	store := testStore(mock)
	ctx := context.Background()

	seed := map[uuid.UUID]CartLine{uuid.New(): {Quantity: 1, Price: decimal.NewFromInt(10)}}
	if err := store.Save(ctx, "sess-2", seed); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Save(ctx, "sess-2", map[uuid.UUID]CartLine{}); err != nil {
		t.Fatalf("save empty: %v", err)
	}
	if _, exists := mock.data[mock.CartSessionKey("sess-2")]; exists {
		t.Fatal("expected blob to be deleted for empty cart")
	}
}

func TestEnsureSessionIDMintsCookie(t *testing.T) {
	store := testStore(newMockBlobStore())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	id := store.EnsureSessionID(rec, req)
	if id == "" {
		t.Fatal("expected a minted session id")
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "sid" || cookies[0].Value != id {
		t.Fatalf("expected sid cookie with value %q, got %v", id, cookies)
	}

	// A request that already carries the cookie keeps its id.
	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(&http.Cookie{Name: "sid", Value: "existing"})
	rec2 := httptest.NewRecorder()
	if got := store.EnsureSessionID(rec2, req2); got != "existing" {
		t.Fatalf("expected existing session id, got %q", got)
	}
	if len(rec2.Result().Cookies()) != 0 {
		t.Fatal("should not reset the cookie when present")
	}
}
