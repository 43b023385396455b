package capability

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultExportFormats is the export set every newly enabled capability starts
// with. It is the same for every kind.
func DefaultExportFormats() []ExportFormat {
	return []ExportFormat{ExportGLB, ExportSTL, ExportOBJ, Export3MF}
}

// DefaultTextOptions returns a fresh text setup for text-config capabilities.
func DefaultTextOptions() TextOptions {
	return TextOptions{MinCharacters: 1, MaxCharacters: 20, Fonts: []string{}}
}

// Enable returns a fresh default configuration for capability id scoped to the
// product's current parts. A product without named parts is scoped as a whole.
func Enable(id ID, partIDs []string) Configuration {
	def := Lookup(id)

	scope := Parts(partIDs...)
	if len(scope.parts) == 0 {
		scope = WholeProduct()
	}

	cfg := Configuration{
		CapabilityID:  id,
		AppliesTo:     scope,
		Options:       []Option{},
		Zones:         []Zone{},
		Rules:         []Rule{},
		ExportFormats: DefaultExportFormats(),
		Pricing:       NoChargePricing(),
	}
	if def.SupportsOptions {
		cfg.Pricing = PerOptionPricing()
	}
	if def.SupportsTextConfig {
		t := DefaultTextOptions()
		cfg.TextOptions = &t
	}
	if id == Size {
		s := DefaultSizeOptions()
		cfg.SizeOptions = &s
	}
	return cfg
}

// SetAppliesTo replaces the part scope wholesale.
func SetAppliesTo(cfg Configuration, selection AppliesTo) Configuration {
	out := cfg.clone()
	out.AppliesTo = AppliesTo{whole: selection.whole, parts: selection.PartIDs()}
	return out
}

// AddOption appends an empty option. The first option of a configuration is
// the default.
func AddOption(cfg Configuration) Configuration {
	out := cfg.clone()
	out.Options = append(out.Options, Option{
		ID:            uuid.NewString(),
		PriceModifier: decimal.Zero,
		IsDefault:     len(cfg.Options) == 0,
	})
	return out
}

// RemoveOption drops an option. Removing an option whose name is still empty is
// how the editor discards an option it never finished. When the default goes,
// the first remaining option inherits the flag.
func RemoveOption(cfg Configuration, optionID string) Configuration {
	idx := -1
	for i, o := range cfg.Options {
		if o.ID == optionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return cfg
	}
	removed := cfg.Options[idx]

	out := cfg.clone()
	out.Options = append(out.Options[:idx], out.Options[idx+1:]...)
	if removed.IsDefault && len(out.Options) > 0 {
		out.Options[0].IsDefault = true
	}
	return out
}

// SetDefault flags optionID as the only default. The options slice is replaced in
// one step so no intermediate value ever holds zero or two defaults.
func SetDefault(cfg Configuration, optionID string) Configuration {
	if _, ok := cfg.OptionByID(optionID); !ok {
		return cfg
	}
	next := make([]Option, len(cfg.Options))
	for i, o := range cfg.Options {
		o.IsDefault = o.ID == optionID
		next[i] = o
	}
	out := cfg.clone()
	out.Options = next
	return out
}

// SetPricing replaces the pricing model wholesale.
func SetPricing(cfg Configuration, p Pricing) Configuration {
	switch p.Type {
	case PricingPerOption, PricingFixed, PricingPerUnit, PricingNoCharge:
	default:
		return cfg
	}
	out := cfg.clone()
	out.Pricing = p
	return out
}

func updateOption(cfg Configuration, optionID string, fn func(*Option)) Configuration {
	for i, o := range cfg.Options {
		if o.ID != optionID {
			continue
		}
		out := cfg.clone()
		fn(&out.Options[i])
		return out
	}
	return cfg
}

func RenameOption(cfg Configuration, optionID, name string) Configuration {
	return updateOption(cfg, optionID, func(o *Option) { o.Name = name })
}

func SetOptionPrice(cfg Configuration, optionID string, modifier decimal.Decimal) Configuration {
	return updateOption(cfg, optionID, func(o *Option) { o.PriceModifier = modifier })
}

func SetOptionSwatch(cfg Configuration, optionID string, swatchURL *string) Configuration {
	return updateOption(cfg, optionID, func(o *Option) { o.SwatchURL = swatchURL })
}

// AddZone appends a zone. Capabilities without zone support ignore it.
func AddZone(cfg Configuration, z Zone) (Configuration, string) {
	if !Known(cfg.CapabilityID) || !Lookup(cfg.CapabilityID).SupportsZones || z.PartID == "" {
		return cfg, ""
	}
	if z.ID == "" {
		z.ID = uuid.NewString()
	}
	out := cfg.clone()
	z.AllowedCapabilities = append([]ID(nil), z.AllowedCapabilities...)
	out.Zones = append(out.Zones, z)
	return out, z.ID
}

// UpdateZone replaces the zone with z.ID.
func UpdateZone(cfg Configuration, z Zone) Configuration {
	for i, existing := range cfg.Zones {
		if existing.ID != z.ID {
			continue
		}
		out := cfg.clone()
		z.AllowedCapabilities = append([]ID(nil), z.AllowedCapabilities...)
		out.Zones[i] = z
		return out
	}
	return cfg
}

func RemoveZone(cfg Configuration, zoneID string) Configuration {
	for i, z := range cfg.Zones {
		if z.ID != zoneID {
			continue
		}
		out := cfg.clone()
		out.Zones = append(out.Zones[:i], out.Zones[i+1:]...)
		return out
	}
	return cfg
}

// SetTextOptions replaces the text constraints of a text-config capability.
func SetTextOptions(cfg Configuration, t TextOptions) Configuration {
	if !Known(cfg.CapabilityID) || !Lookup(cfg.CapabilityID).SupportsTextConfig {
		return cfg
	}
	if t.MinCharacters < 0 || (t.MaxCharacters > 0 && t.MaxCharacters < t.MinCharacters) {
		return cfg
	}
	out := cfg.clone()
	t.Fonts = append([]string{}, t.Fonts...)
	out.TextOptions = &t
	return out
}

func SetExportFormats(cfg Configuration, formats []ExportFormat) Configuration {
	out := cfg.clone()
	out.ExportFormats = append([]ExportFormat{}, formats...)
	return out
}

func SetRules(cfg Configuration, rules []Rule) Configuration {
	in := cfg
	in.Rules = rules
	out := in.clone()
	if out.Rules == nil {
		out.Rules = []Rule{}
	}
	return out
}

// MarkConfigured records whether the merchant finished this capability's editor.
func MarkConfigured(cfg Configuration, configured bool) Configuration {
	out := cfg.clone()
	out.IsConfigured = configured
	return out
}

// Normalize repairs a configuration that arrived from outside the store
// operations (a saved draft, an API request): only the first default option
// survives, presets get the same treatment, nil slices become empty and the size
// pricing mode is clamped.
func Normalize(cfg Configuration) Configuration {
	out := cfg.clone()

	seen := false
	for i := range out.Options {
		if out.Options[i].IsDefault {
			if seen {
				out.Options[i].IsDefault = false
			}
			seen = true
		}
	}

	if out.Options == nil {
		out.Options = []Option{}
	}
	if out.Zones == nil {
		out.Zones = []Zone{}
	}
	if out.Rules == nil {
		out.Rules = []Rule{}
	}
	if len(out.ExportFormats) == 0 {
		out.ExportFormats = DefaultExportFormats()
	}
	if out.Pricing.Type == "" {
		out.Pricing = NoChargePricing()
	}

	if out.SizeOptions != nil {
		seen = false
		for i := range out.SizeOptions.Presets {
			if out.SizeOptions.Presets[i].IsDefault {
				if seen {
					out.SizeOptions.Presets[i].IsDefault = false
				}
				seen = true
			}
		}
		if out.SizeOptions.CustomDimensions == nil {
			out.SizeOptions.CustomDimensions = []CustomDimension{}
		}
		if out.SizeOptions.Presets == nil {
			out.SizeOptions.Presets = []SizePreset{}
		}
		out.SizeOptions.reclamp()
	}
	return out
}
