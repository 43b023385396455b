package dto

import (
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/draft"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type SaveDraftRequest struct {
	ProductID string       `json:"product_id" validate:"required,max=128"`
	VariantID *string      `json:"variant_id" validate:"omitempty,max=128"`
	Draft     *draft.Draft `json:"draft"      validate:"required"`
}

// DraftQuery is bound from ?product_id=&variant_id=.
type DraftQuery struct {
	ProductID string `form:"product_id" validate:"required,max=128"`
	VariantID string `form:"variant_id" validate:"omitempty,max=128"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type DraftResponse struct {
	Draft *draft.Draft `json:"draft"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

type DraftKeyResponse struct {
	ProductID string  `json:"product_id"`
	VariantID *string `json:"variant_id"`
}

type DraftListResponse struct {
	Drafts []DraftKeyResponse `json:"drafts"`
}
