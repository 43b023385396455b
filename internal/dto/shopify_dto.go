package dto

import "github.com/shopspring/decimal"

type AuthQuery struct {
	Shop string `form:"shop" validate:"required,max=255"`
}

type CallbackQuery struct {
	Shop  string `form:"shop"  validate:"required,max=255"`
	Code  string `form:"code"  validate:"required"`
	State string `form:"state" validate:"required"`
	HMAC  string `form:"hmac"  validate:"required"`
}

type SessionResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int    `json:"expires_in"` // seconds
	Shop      string `json:"shop"`
	UserID    string `json:"user_id"`
}

type VariantResponse struct {
	ID    string          `json:"id"`
	Title string          `json:"title"`
	Price decimal.Decimal `json:"price"`
	SKU   string          `json:"sku,omitempty"`
}

type ProductResponse struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Handle   string            `json:"handle"`
	Status   string            `json:"status"`
	ImageURL *string           `json:"image_url"`
	Variants []VariantResponse `json:"variants"`
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
}

// AppUninstalledWebhook is the body Shopify posts on app/uninstalled.
type AppUninstalledWebhook struct {
	ID     int64  `json:"id"`
	Domain string `json:"domain"`
}
