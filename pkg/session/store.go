package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bazarcheh/bazarcheh-backend/pkg/config"
	redisclient "github.com/bazarcheh/bazarcheh-backend/pkg/redis"
	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type blobStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type blobKeyer interface {
	CartSessionKey(sessionID string) string
}

// BlobBackend is the storage surface the store needs. The shared Redis client
// satisfies it; tests swap in an in-memory fake.
type BlobBackend interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	CartSessionKey(sessionID string) string
}

// CartLine is one line of the anonymous cart. Price is frozen at the moment
// the line was added; it is not refreshed from the catalog.
type CartLine struct {
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Store keeps the anonymous browser cart in Redis, keyed by the session
// cookie. Writes refresh the TTL so active sessions never expire mid-visit.
type Store struct {
	store blobStore
	keyer blobKeyer
	cfg   config.SessionConfig
}

// NewStore builds a session store backed by the shared Redis client.
func NewStore(client *redisclient.Client, cfg config.SessionConfig) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return NewStoreWith(client, cfg)
}

// NewStoreWith builds a session store on an explicit blob backend.
func NewStoreWith(backend BlobBackend, cfg config.SessionConfig) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("blob backend is required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	return &Store{store: backend, keyer: backend, cfg: cfg}, nil
}

type cartBlob struct {
	Items map[string]CartLine `json:"items"`
}

// Load returns the cart lines stored for the session, or an empty map when
// the session has no cart yet.
func (s *Store) Load(ctx context.Context, sessionID string) (map[uuid.UUID]CartLine, error) {
	if strings.TrimSpace(sessionID) == "" {
		return map[uuid.UUID]CartLine{}, nil
	}

	raw, err := s.store.Get(ctx, s.keyer.CartSessionKey(sessionID))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return map[uuid.UUID]CartLine{}, nil
		}
		return nil, fmt.Errorf("load session cart: %w", err)
	}

	var blob cartBlob
	if err := json.Unmarshal([]byte(raw), &blob); err != nil {
		// A corrupt blob is unrecoverable; treat it as an empty cart.
		return map[uuid.UUID]CartLine{}, nil
	}

	lines := make(map[uuid.UUID]CartLine, len(blob.Items))
	for key, line := range blob.Items {
		id, parseErr := uuid.Parse(key)
		if parseErr != nil || line.Quantity <= 0 {
			continue
		}
		lines[id] = line
	}
	return lines, nil
}

// Save replaces the session cart with the provided lines. An empty map
// deletes the blob instead of storing it.
func (s *Store) Save(ctx context.Context, sessionID string, lines map[uuid.UUID]CartLine) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	if len(lines) == 0 {
		return s.Clear(ctx, sessionID)
	}

	blob := cartBlob{Items: make(map[string]CartLine, len(lines))}
	for id, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		blob.Items[id.String()] = line
	}

	payload, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("encode session cart: %w", err)
	}
	return s.store.Set(ctx, s.keyer.CartSessionKey(sessionID), string(payload), s.cfg.TTL)
}

// Clear removes the cart blob for the session.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	return s.store.Del(ctx, s.keyer.CartSessionKey(sessionID))
}

// SessionID extracts the session cookie value, or "" when absent.
func (s *Store) SessionID(r *http.Request) string {
	cookie, err := r.Cookie(s.cfg.CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// EnsureSessionID returns the request's session id, minting a fresh one and
// setting the cookie when the request carries none.
func (s *Store) EnsureSessionID(w http.ResponseWriter, r *http.Request) string {
	if id := s.SessionID(r); id != "" {
		return id
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
