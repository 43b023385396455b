package service

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/infra"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/middleware"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/model"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	shop          = "acme.myshopify.com"
	sessionSecret = "service-test-secret"
)

// ── Stubs ────────────────────────────────────────────────────────────────────

type fakeAPI struct {
	mu          sync.Mutex
	token       *infra.AccessTokenResponse
	productsErr error
	listCalls   int

	// when set, ListProducts signals entered and blocks until gate closes
	entered chan struct{}
	gate    chan struct{}
}

func (*fakeAPI) AuthorizeURL(shop, _, _, state string) string {
	return "https://" + shop + "/admin/oauth/authorize?state=" + state
}
func (*fakeAPI) VerifyQueryHMAC(url.Values) bool           { return true }
func (*fakeAPI) VerifyWebhookHMAC(_ []byte, h string) bool { return h == "ok" }
func (a *fakeAPI) ExchangeCode(context.Context, string, string) (*infra.AccessTokenResponse, error) {
	return a.token, nil
}

func (a *fakeAPI) ListProducts(ctx context.Context, _, _ string) ([]infra.ShopifyProduct, error) {
	if a.gate != nil {
		a.entered <- struct{}{}
		select {
		case <-a.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listCalls++
	if a.productsErr != nil {
		return nil, a.productsErr
	}
	return []infra.ShopifyProduct{{ID: 1, Title: "Vase", Variants: []infra.ShopifyVariant{{ID: 2, Price: "not-a-number"}}}}, nil
}

func onlineToken(userID int64) *infra.AccessTokenResponse {
	tok := &infra.AccessTokenResponse{AccessToken: "shpat", Scope: "read_products", ExpiresIn: 60}
	if userID != 0 {
		tok.AssociatedUser = &struct {
			ID    int64  `json:"id"`
			Email string `json:"email"`
		}{ID: userID}
	}
	return tok
}

type mapStates map[string]string

func (m mapStates) Put(_ context.Context, nonce, shop string, _ time.Duration) error {
	m[nonce] = shop
	return nil
}

func (m mapStates) Take(_ context.Context, nonce string) (string, error) {
	s, ok := m[nonce]
	if !ok {
		return "", ErrInvalidState
	}
	delete(m, nonce)
	return s, nil
}

type mapTokens map[string]model.ShopToken

func (m mapTokens) Save(_ context.Context, t *model.ShopToken) error {
	m[t.Shop+"/"+t.AssociatedUserID] = *t
	return nil
}

func (m mapTokens) Find(_ context.Context, shop, userID string) (*model.ShopToken, error) {
	t, ok := m[shop+"/"+userID]
	if !ok {
		return nil, repository.ErrTokenNotFound
	}
	return &t, nil
}

func (m mapTokens) DeleteByShop(context.Context, string) (int64, error) { return 0, nil }

type purgeFunc func(ctx context.Context, shop string) error

func (f purgeFunc) EnqueuePurge(ctx context.Context, shop string) error { return f(ctx, shop) }

type serviceFixture struct {
	svc    *shopifyService
	api    *fakeAPI
	states mapStates
	tokens mapTokens
	now    time.Time
}

func newServiceFixture(t *testing.T, purge purgeFunc) *serviceFixture {
	t.Helper()
	if purge == nil {
		purge = func(context.Context, string) error { return nil }
	}
	f := &serviceFixture{
		api:    &fakeAPI{token: onlineToken(77)},
		states: mapStates{},
		tokens: mapTokens{},
		now:    time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
	}
	f.svc = NewShopifyService(f.api, f.tokens, f.states, purge,
		infra.NewCircuitBreaker(infra.CircuitBreakerConfig{Name: "test", FailureThreshold: 2}), nil,
		ShopifyOptions{Scopes: "read_products", RedirectURI: "https://app.test/cb", SessionSecret: sessionSecret, SessionTTL: time.Hour},
	).(*shopifyService)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *serviceFixture) callback(state, forShop string) url.Values {
	q := url.Values{}
	q.Set("shop", forShop)
	q.Set("code", "c")
	q.Set("state", state)
	q.Set("hmac", "x")
	return q
}

func (f *serviceFixture) begin(t *testing.T) string {
	t.Helper()
	_, err := f.svc.BeginAuth(context.Background(), shop)
	require.NoError(t, err)
	require.Len(t, f.states, 1)
	for nonce := range f.states {
		return nonce
	}
	return ""
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestShopifyService_CompleteAuthIssuesSession(t *testing.T) {
	f := newServiceFixture(t, nil)
	nonce := f.begin(t)

	sess, err := f.svc.CompleteAuth(context.Background(), f.callback(nonce, shop))
	require.NoError(t, err)
	assert.Equal(t, "77", sess.UserID)
	assert.Equal(t, 3600, sess.ExpiresIn)

	stored := f.tokens[shop+"/77"]
	require.NotNil(t, stored.ExpiresAt)
	assert.Equal(t, f.now.Add(time.Minute), *stored.ExpiresAt)

	claims := &middleware.SessionClaims{}
	_, err = jwt.ParseWithClaims(sess.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(sessionSecret), nil
	}, jwt.WithTimeFunc(func() time.Time { return f.now }))
	require.NoError(t, err)
	assert.Equal(t, shop, claims.Shop)
	assert.Equal(t, "77", claims.UserID)
}

func TestShopifyService_StateBoundToShop(t *testing.T) {
	f := newServiceFixture(t, nil)
	nonce := f.begin(t)

	_, err := f.svc.CompleteAuth(context.Background(), f.callback(nonce, "other.myshopify.com"))
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Empty(t, f.tokens)
}

func TestShopifyService_OfflineTokenRejected(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.api.token = onlineToken(0)
	nonce := f.begin(t)

	_, err := f.svc.CompleteAuth(context.Background(), f.callback(nonce, shop))
	assert.ErrorIs(t, err, ErrNoAssociatedUser)
	assert.Empty(t, f.tokens)
}

func TestShopifyService_ListProducts(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, nil)

	_, err := f.svc.ListProducts(ctx, shop, "77")
	assert.ErrorIs(t, err, ErrNoShopToken)

	exp := f.now.Add(time.Hour)
	f.tokens[shop+"/77"] = model.ShopToken{Shop: shop, AssociatedUserID: "77", AccessToken: "t", ExpiresAt: &exp}

	products, err := f.svc.ListProducts(ctx, shop, "77")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.True(t, products[0].Variants[0].Price.IsZero(), "unparseable prices fall back to zero")

	f.now = exp.Add(time.Second)
	_, err = f.svc.ListProducts(ctx, shop, "77")
	assert.ErrorIs(t, err, ErrNoShopToken, "expired online token")
}

func TestShopifyService_CancelledCallerDoesNotFailSharedFetch(t *testing.T) {
	f := newServiceFixture(t, nil)
	f.tokens[shop+"/77"] = model.ShopToken{Shop: shop, AssociatedUserID: "77", AccessToken: "t"}
	f.api.entered = make(chan struct{}, 1)
	f.api.gate = make(chan struct{})

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := f.svc.ListProducts(firstCtx, shop, "77")
		firstErr <- err
	}()
	<-f.api.entered

	type result struct {
		n   int
		err error
	}
	second := make(chan result, 1)
	go func() {
		products, err := f.svc.ListProducts(context.Background(), shop, "77")
		second <- result{len(products), err}
	}()
	time.Sleep(50 * time.Millisecond) // let the second caller join the in-flight fetch

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	close(f.api.gate)
	select {
	case r := <-second:
		require.NoError(t, r.err)
		assert.Equal(t, 1, r.n)
	case <-time.After(5 * time.Second):
		t.Fatal("second caller never returned")
	}
	assert.Equal(t, 1, f.api.listCalls)
}

func TestShopifyService_RejectedTokenAndOpenBreaker(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, nil)
	f.tokens[shop+"/77"] = model.ShopToken{Shop: shop, AssociatedUserID: "77", AccessToken: "t"}

	f.api.productsErr = infra.ErrShopifyUnauthorized
	_, err := f.svc.ListProducts(ctx, shop, "77")
	assert.ErrorIs(t, err, ErrNoShopToken)

	f.api.productsErr = errors.New("shopify: list products returned 503")
	for i := 0; i < 2; i++ {
		_, err = f.svc.ListProducts(ctx, shop, "77")
		assert.ErrorIs(t, err, ErrShopifyUnavailable)
	}
	calls := f.api.listCalls

	_, err = f.svc.ListProducts(ctx, shop, "77")
	assert.ErrorIs(t, err, ErrShopifyUnavailable)
	assert.Equal(t, calls, f.api.listCalls, "open breaker short-circuits the call")
}

func TestShopifyService_HandleUninstall(t *testing.T) {
	var queued []string
	f := newServiceFixture(t, func(_ context.Context, s string) error {
		queued = append(queued, s)
		return nil
	})
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.HandleUninstall(ctx, []byte(`{"domain":"`+shop+`"}`), "bad"), ErrInvalidSignature)
	assert.ErrorIs(t, f.svc.HandleUninstall(ctx, []byte(`{"domain":"evil.com"}`), "ok"), ErrInvalidShop)
	assert.ErrorIs(t, f.svc.HandleUninstall(ctx, []byte(`not json`), "ok"), ErrInvalidShop)
	require.NoError(t, f.svc.HandleUninstall(ctx, []byte(`{"domain":"`+shop+`"}`), "ok"))
	assert.Equal(t, []string{shop}, queued)
}
