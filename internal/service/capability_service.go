package service

import (
	"errors"

	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/capability"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/dto"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/metrics"
)

var (
	ErrUnknownCapability = errors.New("unknown capability")
	ErrUnknownCategory   = errors.New("unknown capability category")
)

// CapabilityService exposes the catalog and the pricing resolver over HTTP.
// Everything here is pure; no storage is involved.
type CapabilityService interface {
	Catalog(category string) ([]capability.Definition, error)
	Enable(id string, partIDs []string) (capability.Configuration, error)
	Quote(cfg capability.Configuration, sel capability.Selection) (*dto.QuoteResponse, error)
}

type capabilityService struct{}

func NewCapabilityService() CapabilityService { return capabilityService{} }

// Catalog returns the whole catalog, or one category of it.
func (capabilityService) Catalog(category string) ([]capability.Definition, error) {
	if category == "" {
		return capability.All(), nil
	}
	c := capability.Category(category)
	if !c.Valid() {
		return nil, ErrUnknownCategory
	}
	defs := capability.DefinitionsByCategory(c)
	if defs == nil {
		defs = []capability.Definition{}
	}
	return defs, nil
}

func (capabilityService) Enable(id string, partIDs []string) (capability.Configuration, error) {
	if !capability.Known(capability.ID(id)) {
		return capability.Configuration{}, ErrUnknownCapability
	}
	return capability.Enable(capability.ID(id), partIDs), nil
}

// Quote normalizes a client-supplied configuration before pricing it, so a
// stale pricing mode or a duplicated default cannot skew the result.
func (capabilityService) Quote(cfg capability.Configuration, sel capability.Selection) (*dto.QuoteResponse, error) {
	if !capability.Known(cfg.CapabilityID) {
		return nil, ErrUnknownCapability
	}
	cfg = capability.Normalize(cfg)
	amount := capability.ResolvePrice(cfg, sel)
	metrics.QuotesTotal.WithLabelValues(string(cfg.CapabilityID), string(cfg.Pricing.Type)).Inc()
	return &dto.QuoteResponse{
		CapabilityID: cfg.CapabilityID,
		PricingType:  string(cfg.Pricing.Type),
		Amount:       amount,
	}, nil
}
