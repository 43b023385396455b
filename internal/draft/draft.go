// Package draft defines the persisted snapshot of an in-progress wizard and the
// store contract the rest of the application consumes.
//
// Drafts are opaque, wholesale blobs: there is no versioning, no merging and no
// optimistic concurrency. The last Put for a key wins.
package draft

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned by Store.Get when nothing is saved under the key.
var ErrNotFound = errors.New("draft not found")

// Draft is one saved wizard state. CapabilityState and MeshState are opaque to
// the store; the wizard package knows their shape.
type Draft struct {
	Step            int             `json:"step"`
	PurchaseMode    string          `json:"purchaseMode"`
	VariantMode     string          `json:"variantMode"`
	VariantID       *string         `json:"variantId,omitempty"`
	CapabilityState json.RawMessage `json:"capabilityState"`
	MeshState       json.RawMessage `json:"meshState"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Key scopes a draft to one shop (tenant), one staff user (actor) and one
// product, optionally narrowed to a variant. An empty VariantID means the draft
// covers the product as a whole.
type Key struct {
	TenantID  string
	ActorID   string
	ProductID string
	VariantID string
}

// Valid reports whether the key names a tenant, an actor and a product.
func (k Key) Valid() bool {
	return k.TenantID != "" && k.ActorID != "" && k.ProductID != ""
}

// Store persists drafts.
type Store interface {
	Get(ctx context.Context, key Key) (*Draft, error)
	Put(ctx context.Context, key Key, d Draft) error
	Delete(ctx context.Context, key Key) error

	// List returns the keys saved by one actor of one tenant.
	List(ctx context.Context, tenantID, actorID string) ([]Key, error)

	// PurgeTenant deletes every draft of a tenant and reports how many went.
	PurgeTenant(ctx context.Context, tenantID string) (int64, error)
}
