package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/dto"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/infra"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/metrics"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/middleware"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/model"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const (
	oauthStateTTL        = 10 * time.Minute
	productsFetchTimeout = 15 * time.Second
)

var (
	ErrInvalidShop        = errors.New("invalid shop domain")
	ErrInvalidSignature   = errors.New("invalid request signature")
	ErrInvalidState       = errors.New("unknown or expired oauth state")
	ErrNoAssociatedUser   = errors.New("shopify did not return an associated user")
	ErrNoShopToken        = errors.New("no access token stored for this shop user")
	ErrShopifyUnavailable = errors.New("shopify is unavailable")
)

// ShopifyAPI is the part of infra.ShopifyClient the service calls.
type ShopifyAPI interface {
	AuthorizeURL(shop, scopes, redirectURI, state string) string
	VerifyQueryHMAC(query url.Values) bool
	VerifyWebhookHMAC(body []byte, header string) bool
	ExchangeCode(ctx context.Context, shop, code string) (*infra.AccessTokenResponse, error)
	ListProducts(ctx context.Context, shop, accessToken string) ([]infra.ShopifyProduct, error)
}

// StateStore keeps OAuth state nonces between the redirect and the callback.
type StateStore interface {
	Put(ctx context.Context, nonce, shop string, ttl time.Duration) error
	// Take returns the shop a nonce was issued for and forgets the nonce.
	Take(ctx context.Context, nonce string) (string, error)
}

// PurgeEnqueuer schedules removal of everything a shop owns.
type PurgeEnqueuer interface {
	EnqueuePurge(ctx context.Context, shop string) error
}

// ShopifyOptions are the settings the service needs from config.
type ShopifyOptions struct {
	Scopes        string
	RedirectURI   string
	SessionSecret string
	SessionTTL    time.Duration
	ProductsTTL   time.Duration
}

type ShopifyService interface {
	BeginAuth(ctx context.Context, shop string) (string, error)
	CompleteAuth(ctx context.Context, query url.Values) (*dto.SessionResponse, error)
	ListProducts(ctx context.Context, shop, userID string) ([]dto.ProductResponse, error)
	HandleUninstall(ctx context.Context, body []byte, hmacHeader string) error
}

type shopifyService struct {
	api     ShopifyAPI
	tokens  repository.ShopTokenRepository
	states  StateStore
	purges  PurgeEnqueuer
	breaker *infra.CircuitBreaker
	rdb     *redis.Client // products cache; nil disables it
	opts    ShopifyOptions
	group   singleflight.Group
	now     func() time.Time
}

func NewShopifyService(
	api ShopifyAPI,
	tokens repository.ShopTokenRepository,
	states StateStore,
	purges PurgeEnqueuer,
	breaker *infra.CircuitBreaker,
	rdb *redis.Client,
	opts ShopifyOptions,
) ShopifyService {
	return &shopifyService{
		api:     api,
		tokens:  tokens,
		states:  states,
		purges:  purges,
		breaker: breaker,
		rdb:     rdb,
		opts:    opts,
		now:     time.Now,
	}
}

// BeginAuth issues a state nonce and returns the Shopify consent URL.
func (s *shopifyService) BeginAuth(ctx context.Context, shop string) (string, error) {
	if !infra.ValidShopDomain(shop) {
		return "", ErrInvalidShop
	}
	nonce := uuid.NewString()
	if err := s.states.Put(ctx, nonce, shop, oauthStateTTL); err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}
	return s.api.AuthorizeURL(shop, s.opts.Scopes, s.opts.RedirectURI, nonce), nil
}

// CompleteAuth verifies the callback, stores the online token and issues a
// session for the shop's staff user.
func (s *shopifyService) CompleteAuth(ctx context.Context, query url.Values) (*dto.SessionResponse, error) {
	shop := query.Get("shop")
	if !infra.ValidShopDomain(shop) {
		return nil, ErrInvalidShop
	}
	if !s.api.VerifyQueryHMAC(query) {
		return nil, ErrInvalidSignature
	}
	issuedFor, err := s.states.Take(ctx, query.Get("state"))
	if err != nil || issuedFor != shop {
		return nil, ErrInvalidState
	}

	var tok *infra.AccessTokenResponse
	err = s.breaker.Execute(ctx, func(ctx context.Context) error {
		var callErr error
		tok, callErr = s.api.ExchangeCode(ctx, shop, query.Get("code"))
		return callErr
	})
	if err != nil {
		metrics.ShopifyCallsTotal.WithLabelValues("access_token", metrics.ResultError).Inc()
		return nil, s.upstreamError(err)
	}
	metrics.ShopifyCallsTotal.WithLabelValues("access_token", metrics.ResultOK).Inc()
	if tok.AssociatedUser == nil || tok.AssociatedUser.ID == 0 {
		return nil, ErrNoAssociatedUser
	}

	userID := strconv.FormatInt(tok.AssociatedUser.ID, 10)
	row := &model.ShopToken{
		Shop:             shop,
		AssociatedUserID: userID,
		AccessToken:      tok.AccessToken,
		Scope:            tok.Scope,
	}
	if tok.AssociatedUser.Email != "" {
		email := tok.AssociatedUser.Email
		row.UserEmail = &email
	}
	if tok.ExpiresIn > 0 {
		exp := s.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
		row.ExpiresAt = &exp
	}
	if err := s.tokens.Save(ctx, row); err != nil {
		return nil, fmt.Errorf("save shop token: %w", err)
	}
	s.dropProductsCache(ctx, shop, userID)

	signed, err := s.issueSession(shop, userID)
	if err != nil {
		return nil, err
	}
	log.Info().Str("shop", shop).Str("user_id", userID).Msg("shopify_service: shop authorized")
	return &dto.SessionResponse{
		Token:     signed,
		TokenType: "bearer",
		ExpiresIn: int(s.opts.SessionTTL.Seconds()),
		Shop:      shop,
		UserID:    userID,
	}, nil
}

func (s *shopifyService) issueSession(shop, userID string) (string, error) {
	now := s.now()
	claims := middleware.SessionClaims{
		Shop:   shop,
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   shop + "/" + userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.opts.SessionTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.opts.SessionSecret))
}

// ListProducts returns the shop's products, served from Redis when fresh.
// Concurrent misses for the same user share one upstream call.
func (s *shopifyService) ListProducts(ctx context.Context, shop, userID string) ([]dto.ProductResponse, error) {
	key := infra.ProductsCacheKey(shop, userID)

	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
			var products []dto.ProductResponse
			if jsonErr := json.Unmarshal(cached, &products); jsonErr == nil {
				metrics.CacheLookupsTotal.WithLabelValues("products", metrics.ResultHit).Inc()
				return products, nil
			}
		}
		metrics.CacheLookupsTotal.WithLabelValues("products", metrics.ResultMiss).Inc()
	}

	// The shared fetch outlives any single caller; each caller still stops
	// waiting when its own context ends.
	ch := s.group.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), productsFetchTimeout)
		defer cancel()
		return s.fetchProducts(fetchCtx, shop, userID)
	})
	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		return nil, res.Err
	}
	products := res.Val.([]dto.ProductResponse)

	if s.rdb != nil && s.opts.ProductsTTL > 0 {
		if b, jsonErr := json.Marshal(products); jsonErr == nil {
			_ = s.rdb.Set(context.Background(), key, b, s.opts.ProductsTTL).Err()
		}
	}
	return products, nil
}

func (s *shopifyService) fetchProducts(ctx context.Context, shop, userID string) ([]dto.ProductResponse, error) {
	tok, err := s.tokens.Find(ctx, shop, userID)
	if errors.Is(err, repository.ErrTokenNotFound) {
		return nil, ErrNoShopToken
	}
	if err != nil {
		return nil, err
	}
	if tok.Expired(s.now()) {
		return nil, ErrNoShopToken
	}

	var raw []infra.ShopifyProduct
	err = s.breaker.Execute(ctx, func(ctx context.Context) error {
		var callErr error
		raw, callErr = s.api.ListProducts(ctx, shop, tok.AccessToken)
		return callErr
	})
	if err != nil {
		metrics.ShopifyCallsTotal.WithLabelValues("products", metrics.ResultError).Inc()
		return nil, s.upstreamError(err)
	}
	metrics.ShopifyCallsTotal.WithLabelValues("products", metrics.ResultOK).Inc()
	return toProductResponses(raw), nil
}

func (s *shopifyService) upstreamError(err error) error {
	switch {
	case errors.Is(err, infra.ErrShopifyUnauthorized):
		return ErrNoShopToken
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		log.Warn().Err(err).Msg("shopify_service: upstream call failed")
		return ErrShopifyUnavailable
	}
}

func toProductResponses(raw []infra.ShopifyProduct) []dto.ProductResponse {
	out := make([]dto.ProductResponse, 0, len(raw))
	for _, p := range raw {
		resp := dto.ProductResponse{
			ID:       strconv.FormatInt(p.ID, 10),
			Title:    p.Title,
			Handle:   p.Handle,
			Status:   p.Status,
			Variants: make([]dto.VariantResponse, 0, len(p.Variants)),
		}
		if p.Image != nil && p.Image.Src != "" {
			src := p.Image.Src
			resp.ImageURL = &src
		}
		for _, v := range p.Variants {
			price, err := decimal.NewFromString(v.Price)
			if err != nil {
				price = decimal.Zero
			}
			resp.Variants = append(resp.Variants, dto.VariantResponse{
				ID:    strconv.FormatInt(v.ID, 10),
				Title: v.Title,
				Price: price,
				SKU:   v.SKU,
			})
		}
		out = append(out, resp)
	}
	return out
}

// HandleUninstall verifies an app/uninstalled webhook and schedules the purge.
func (s *shopifyService) HandleUninstall(ctx context.Context, body []byte, hmacHeader string) error {
	if !s.api.VerifyWebhookHMAC(body, hmacHeader) {
		return ErrInvalidSignature
	}
	var hook dto.AppUninstalledWebhook
	if err := json.Unmarshal(body, &hook); err != nil || !infra.ValidShopDomain(hook.Domain) {
		return ErrInvalidShop
	}
	if err := s.purges.EnqueuePurge(ctx, hook.Domain); err != nil {
		return fmt.Errorf("enqueue purge: %w", err)
	}
	log.Info().Str("shop", hook.Domain).Msg("shopify_service: uninstall received, purge queued")
	return nil
}

func (s *shopifyService) dropProductsCache(ctx context.Context, shop, userID string) {
	if s.rdb == nil {
		return
	}
	_ = s.rdb.Del(ctx, infra.ProductsCacheKey(shop, userID)).Err()
}

// ── Redis state store ────────────────────────────────────────────────────────

type redisStateStore struct{ rdb *redis.Client }

// NewRedisStateStore keeps OAuth nonces in Redis under oauth_state:{nonce}.
func NewRedisStateStore(rdb *redis.Client) StateStore { return &redisStateStore{rdb: rdb} }

func (r *redisStateStore) Put(ctx context.Context, nonce, shop string, ttl time.Duration) error {
	ok, err := r.rdb.SetNX(ctx, infra.OAuthStateKey(nonce), shop, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("oauth state collision")
	}
	return nil
}

func (r *redisStateStore) Take(ctx context.Context, nonce string) (string, error) {
	if nonce == "" {
		return "", ErrInvalidState
	}
	shop, err := r.rdb.GetDel(ctx, infra.OAuthStateKey(nonce)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrInvalidState
	}
	return shop, err
}
