package capability

import (
	"unicode"

	"github.com/shopspring/decimal"
)

// Selection is what a customer picked for one capability.
type Selection struct {
	OptionID string `json:"option_id,omitempty"`
	PresetID string `json:"preset_id,omitempty"`
	Text     string `json:"text,omitempty"`

	// Quantity feeds per-unit pricing for kinds that are neither text nor size.
	Quantity *decimal.Decimal `json:"quantity,omitempty"`

	// Dimensions maps a dimension key (standard name or custom dimension id) to
	// the requested value in centimetres.
	Dimensions map[string]decimal.Decimal `json:"dimensions,omitempty"`
}

// ResolvePrice returns the price delta a selection adds under cfg's pricing model.
// A size configuration is priced by its own size options unless the generic
// model is fixed or no charge.
func ResolvePrice(cfg Configuration, sel Selection) decimal.Decimal {
	switch cfg.Pricing.Type {
	case PricingFixed:
		return cfg.Pricing.Amount
	case PricingNoCharge:
		return decimal.Zero
	}
	if cfg.CapabilityID == Size && cfg.SizeOptions != nil {
		return ResolveSizePrice(*cfg.SizeOptions, sel)
	}
	switch cfg.Pricing.Type {
	case PricingPerOption:
		return optionModifier(cfg, sel.OptionID)
	case PricingPerUnit:
		return cfg.Pricing.Amount.Mul(quantity(cfg, sel))
	}
	return decimal.Zero
}

func optionModifier(cfg Configuration, optionID string) decimal.Decimal {
	if optionID != "" {
		if o, ok := cfg.OptionByID(optionID); ok {
			return o.PriceModifier
		}
		return decimal.Zero
	}
	if o, ok := cfg.DefaultOption(); ok {
		return o.PriceModifier
	}
	return decimal.Zero
}

func presetModifier(s SizeOptions, presetID string) decimal.Decimal {
	if presetID != "" {
		if p, ok := s.presetByID(presetID); ok {
			return p.PriceModifier
		}
		return decimal.Zero
	}
	if p, ok := s.DefaultPreset(); ok {
		return p.PriceModifier
	}
	return decimal.Zero
}

func quantity(cfg Configuration, sel Selection) decimal.Decimal {
	if Known(cfg.CapabilityID) && Lookup(cfg.CapabilityID).SupportsTextConfig {
		return decimal.NewFromInt(int64(CountCharacters(sel.Text)))
	}
	if sel.Quantity != nil && sel.Quantity.IsPositive() {
		return *sel.Quantity
	}
	return decimal.NewFromInt(1)
}

// CountCharacters counts the billable characters of customer text: every rune
// except whitespace.
func CountCharacters(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// ResolveSizePrice prices a size selection. Discrete sizes add the chosen (or
// default) preset's modifier to the base price. Custom and parametric sizes add
// excess * rate, where the excess of each enabled dimension is its clamped value
// minus its minimum and the magnitude depends on the effective pricing mode.
func ResolveSizePrice(s SizeOptions, sel Selection) decimal.Decimal {
	mode := s.EffectivePricingMode()
	if mode == SizePriceTiered {
		return s.BasePrice.Add(presetModifier(s, sel.PresetID))
	}

	dims := s.EnabledDimensions()
	excess := make([]decimal.Decimal, len(dims))
	for i, d := range dims {
		v, ok := sel.Dimensions[d.Key]
		excess[i] = dimensionExcess(d.Dimension, v, ok)
	}

	var magnitude, rate decimal.Decimal
	switch mode {
	case SizePriceArea:
		magnitude, rate = product(excess, 2), s.PricePerCM2
	case SizePriceFormula:
		magnitude, rate = product(excess, 3), s.PricePerCM3
	default:
		magnitude, rate = decimal.Sum(decimal.Zero, excess...), s.PricePerUnit
	}
	return s.BasePrice.Add(magnitude.Mul(rate))
}

func dimensionExcess(d Dimension, value decimal.Decimal, present bool) decimal.Decimal {
	if !present {
		return decimal.Zero
	}
	if value.LessThan(d.Min) {
		value = d.Min
	}
	if d.Max.IsPositive() && value.GreaterThan(d.Max) {
		value = d.Max
	}
	return value.Sub(d.Min)
}

// product multiplies the first n values. Fewer than n values cannot happen once
// the pricing mode has been clamped.
func product(values []decimal.Decimal, n int) decimal.Decimal {
	if len(values) < n {
		return decimal.Zero
	}
	out := decimal.NewFromInt(1)
	for _, v := range values[:n] {
		out = out.Mul(v)
	}
	return out
}
