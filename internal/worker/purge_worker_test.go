package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/draft"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── In-memory token repository stub ──────────────────────────────────────────

type stubTokenRepo struct {
	tokens map[string][]model.ShopToken
	err    error
}

func (r *stubTokenRepo) Save(_ context.Context, t *model.ShopToken) error {
	r.tokens[t.Shop] = append(r.tokens[t.Shop], *t)
	return nil
}

func (r *stubTokenRepo) Find(_ context.Context, shop, userID string) (*model.ShopToken, error) {
	for _, t := range r.tokens[shop] {
		if t.AssociatedUserID == userID {
			return &t, nil
		}
	}
	return nil, errors.New("not found")
}

func (r *stubTokenRepo) DeleteByShop(_ context.Context, shop string) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	n := int64(len(r.tokens[shop]))
	delete(r.tokens, shop)
	return n, nil
}

const shop = "acme.myshopify.com"

func seeded(t *testing.T) (*draft.MemoryStore, *stubTokenRepo) {
	t.Helper()
	ctx := context.Background()
	drafts := draft.NewMemoryStore()
	for _, k := range []draft.Key{
		{TenantID: shop, ActorID: "1", ProductID: "p1"},
		{TenantID: shop, ActorID: "2", ProductID: "p1", VariantID: "v"},
		{TenantID: "other.myshopify.com", ActorID: "1", ProductID: "p1"},
	} {
		require.NoError(t, drafts.Put(ctx, k, draft.Draft{Step: 1, UpdatedAt: time.Now()}))
	}
	tokens := &stubTokenRepo{tokens: map[string][]model.ShopToken{
		shop: {{Shop: shop, AssociatedUserID: "1"}, {Shop: shop, AssociatedUserID: "2"}},
	}}
	return drafts, tokens
}

func TestPurgeWorker_RemovesShopData(t *testing.T) {
	drafts, tokens := seeded(t)
	w := NewPurgeWorker(drafts, tokens, nil)

	res, err := w.Purge(context.Background(), shop)
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Drafts)
	assert.EqualValues(t, 2, res.Tokens)

	keys, _ := drafts.List(context.Background(), shop, "1")
	assert.Empty(t, keys)
	keys, _ = drafts.List(context.Background(), "other.myshopify.com", "1")
	assert.Len(t, keys, 1, "other shops are untouched")
}

func TestPurgeWorker_ProcessDecodesPayload(t *testing.T) {
	drafts, tokens := seeded(t)
	w := NewPurgeWorker(drafts, tokens, nil)

	payload, _ := json.Marshal(PurgePayload{Shop: shop})
	require.NoError(t, w.Process(context.Background(), payload))
	assert.Empty(t, tokens.tokens[shop])

	assert.Error(t, w.Process(context.Background(), json.RawMessage(`{`)))
	assert.NoError(t, w.Process(context.Background(), json.RawMessage(`{"shop":"not a shop"}`)),
		"malformed shops are dropped, not retried")
}

func TestPurgeWorker_SurfacesFailure(t *testing.T) {
	drafts, tokens := seeded(t)
	tokens.err = errors.New("db down")
	w := NewPurgeWorker(drafts, tokens, nil)

	_, err := w.Purge(context.Background(), shop)
	assert.ErrorContains(t, err, "db down")
}

func TestComputeRetryBackoff(t *testing.T) {
	assert.Equal(t, 30*time.Second, computeRetryBackoff(0))
	assert.Equal(t, 30*time.Second, computeRetryBackoff(1))
	assert.Equal(t, time.Minute, computeRetryBackoff(2))
	assert.Equal(t, 4*time.Minute, computeRetryBackoff(4))
	assert.Equal(t, 30*time.Minute, computeRetryBackoff(20))
}

func TestWorkerHandlers_ForType(t *testing.T) {
	w := NewPurgeWorker(draft.NewMemoryStore(), &stubTokenRepo{tokens: map[string][]model.ShopToken{}}, nil)
	h := &WorkerHandlers{Purge: w}
	assert.Equal(t, Processor(w), h.forType(JobTypePurge))
	assert.Nil(t, h.forType("email"))
}
