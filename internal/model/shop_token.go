package model

import (
	"time"

	"github.com/google/uuid"
)

// ShopToken stores the Shopify access token granted to a staff user of a shop.
// A shop can hold one token per associated user; the offline token (no user)
// is stored with AssociatedUserID = "".
type ShopToken struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Shop             string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_shop_user"`
	AssociatedUserID string    `gorm:"type:varchar(64);not null;default:'';uniqueIndex:idx_shop_user"`
	AccessToken      string    `gorm:"not null"`
	Scope            string    `gorm:"not null;default:''"`
	UserEmail        *string
	ExpiresAt        *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Expired reports whether an online token has passed its expiry.
func (t *ShopToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && now.After(*t.ExpiresAt)
}
