package dto

import (
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/capability"

	"github.com/shopspring/decimal"
)

type CapabilityListResponse struct {
	Capabilities []capability.Definition `json:"capabilities"`
}

type EnableCapabilityRequest struct {
	PartIDs []string `json:"part_ids" validate:"omitempty,max=500,dive,required,max=64"`
}

type QuoteRequest struct {
	Configuration *capability.Configuration `json:"configuration" validate:"required"`
	Selection     capability.Selection      `json:"selection"`
}

type QuoteResponse struct {
	CapabilityID capability.ID   `json:"capability_id"`
	PricingType  string          `json:"pricing_type"`
	Amount       decimal.Decimal `json:"amount"`
}
