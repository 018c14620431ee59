package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/bazarcheh/bazarcheh-backend/internal/accounts"
	cartsvc "github.com/bazarcheh/bazarcheh-backend/internal/cart"
	"github.com/bazarcheh/bazarcheh-backend/internal/catalog"
	"github.com/bazarcheh/bazarcheh-backend/internal/orders"
	pkgAuth "github.com/bazarcheh/bazarcheh-backend/pkg/auth"
	authsession "github.com/bazarcheh/bazarcheh-backend/pkg/auth/session"
	"github.com/bazarcheh/bazarcheh-backend/pkg/config"
	"github.com/bazarcheh/bazarcheh-backend/pkg/logger"
	"github.com/bazarcheh/bazarcheh-backend/pkg/redis"
	"github.com/bazarcheh/bazarcheh-backend/pkg/session"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessionChecker struct{}

func (stubSessionChecker) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubAccountsService struct{}

func (stubAccountsService) Register(ctx context.Context, input accounts.RegisterInput) (*accounts.UserDTO, error) {
	return &accounts.UserDTO{ID: uuid.New(), Phone: input.Phone}, nil
}

func (stubAccountsService) VerifyPhone(ctx context.Context, phone, code string) (*accounts.UserDTO, error) {
	panic("unimplemented")
}

func (stubAccountsService) ResendCode(ctx context.Context, phone string) error {
	panic("unimplemented")
}

func (stubAccountsService) Login(ctx context.Context, phone, password string) (*accounts.LoginResult, error) {
	panic("unimplemented")
}

func (stubAccountsService) Refresh(ctx context.Context, accessToken, refreshToken string) (*accounts.TokenPair, error) {
	panic("unimplemented")
}

func (stubAccountsService) Logout(ctx context.Context, accessID string) error {
	return nil
}

type stubCatalogService struct{}

func (stubCatalogService) ListCategories(ctx context.Context) ([]catalog.CategoryDTO, error) {
	return []catalog.CategoryDTO{}, nil
}

func (stubCatalogService) ListProducts(ctx context.Context, input catalog.ListProductsInput) (*catalog.ProductListResult, error) {
	return &catalog.ProductListResult{Products: []catalog.ProductDTO{}}, nil
}

func (stubCatalogService) GetProductBySlug(ctx context.Context, slug string) (*catalog.ProductDTO, error) {
	return &catalog.ProductDTO{Slug: slug}, nil
}

type stubCartService struct{}

func (stubCartService) View(ctx context.Context, actor cartsvc.Actor) (*cartsvc.CartDTO, error) {
	return &cartsvc.CartDTO{Items: []cartsvc.ItemDTO{}, Total: "0"}, nil
}

func (stubCartService) AddItem(ctx context.Context, actor cartsvc.Actor, productID uuid.UUID, delta int) (*cartsvc.CartDTO, error) {
	panic("unimplemented")
}

func (stubCartService) SetItemQuantity(ctx context.Context, actor cartsvc.Actor, productID uuid.UUID, qty int) (*cartsvc.CartDTO, error) {
	panic("unimplemented")
}

func (stubCartService) RemoveItem(ctx context.Context, actor cartsvc.Actor, productID uuid.UUID) (*cartsvc.CartDTO, error) {
	panic("unimplemented")
}

func (stubCartService) Clear(ctx context.Context, actor cartsvc.Actor) error {
	return nil
}

func (stubCartService) MergeOnLogin(ctx context.Context, userID uuid.UUID, sessionID string) error {
	return nil
}

func (stubCartService) SourceFor(ctx context.Context, actor cartsvc.Actor) (cartsvc.Source, error) {
	panic("unimplemented")
}

func (stubCartService) ClearForUser(ctx context.Context, userID uuid.UUID) error {
	return nil
}

type stubOrdersService struct{}

func (stubOrdersService) CreateOrder(ctx context.Context, userID uuid.UUID, input orders.CreateOrderInput) (*orders.OrderDTO, error) {
	panic("unimplemented")
}

func (stubOrdersService) MarkPaid(ctx context.Context, userID, orderID uuid.UUID, reference string) (*orders.OrderDTO, error) {
	panic("unimplemented")
}

func (stubOrdersService) Cancel(ctx context.Context, userID, orderID uuid.UUID) (*orders.OrderDTO, error) {
	panic("unimplemented")
}

func (stubOrdersService) Get(ctx context.Context, userID, orderID uuid.UUID) (*orders.OrderDTO, error) {
	panic("unimplemented")
}

func (stubOrdersService) List(ctx context.Context, userID uuid.UUID, input orders.ListInput) (*orders.OrderListResult, error) {
	return &orders.OrderListResult{Orders: []orders.OrderDTO{}}, nil
}

type fakeBlobBackend struct {
	data map[string]string
}

func (f *fakeBlobBackend) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if f.data == nil {
		f.data = map[string]string{}
	}
	if s, ok := value.(string); ok {
		f.data[key] = s
	}
	return nil
}

func (f *fakeBlobBackend) Get(ctx context.Context, key string) (string, error) {
	if raw, ok := f.data[key]; ok {
		return raw, nil
	}
	return "", redislib.Nil
}

func (f *fakeBlobBackend) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeBlobBackend) CartSessionKey(sessionID string) string {
	return "cart:session:" + sessionID
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "secret",
			Issuer:                 "issuer",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
		Session: config.SessionConfig{CookieName: "sid", TTL: time.Hour},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	sessionStore, err := session.NewStoreWith(&fakeBlobBackend{}, cfg.Session)
	if err != nil {
		t.Fatalf("session store: %v", err)
	}
	return NewRouter(Deps{
		Config:       cfg,
		Logger:       logg,
		DB:           stubPinger{},
		Redis:        (*redis.Client)(nil),
		Sessions:     stubSessionChecker{},
		SessionStore: sessionStore,
		Accounts:     stubAccountsService{},
		Catalog:      stubCatalogService{},
		Cart:         stubCartService{},
		Orders:       stubOrdersService{},
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	})
}

func buildToken(t *testing.T, cfg *config.Config) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:        uuid.New(),
		Phone:         "+989121234567",
		PhoneVerified: true,
		JTI:           authsession.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveResponds(t *testing.T) {
	router := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestMetricsRouteRegistered(t *testing.T) {
	router := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestCatalogRoutesArePublic(t *testing.T) {
	router := newTestRouter(t, testConfig())
	for _, path := range []string{"/api/v1/categories", "/api/v1/products", "/api/v1/products/chai-glass"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s got %d", path, resp.Code)
		}
	}
}

func TestCartAcceptsAnonymousCallers(t *testing.T) {
	router := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for anonymous cart got %d", resp.Code)
	}

	minted := false
	for _, cookie := range resp.Result().Cookies() {
		if cookie.Name == "sid" && cookie.Value != "" {
			minted = true
		}
	}
	if !minted {
		t.Fatalf("expected anonymous cart request to mint a session cookie")
	}
}

func TestCartRejectsInvalidToken(t *testing.T) {
	router := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token got %d", resp.Code)
	}
}

func TestOrdersRequireAuth(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	anonymous := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, anonymous)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}

	authed := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	authed.Header.Set("Authorization", "Bearer "+buildToken(t, cfg))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, authed)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with token got %d", resp.Code)
	}
}

func TestCheckoutRequiresAuth(t *testing.T) {
	router := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestLogoutRequiresAuth(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	anonymous := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, anonymous)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}

	authed := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	authed.Header.Set("Authorization", "Bearer "+buildToken(t, cfg))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, authed)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with token got %d", resp.Code)
	}
}
