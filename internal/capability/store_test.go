package capability

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countDefaults(cfg Configuration) int {
	n := 0
	for _, o := range cfg.Options {
		if o.IsDefault {
			n++
		}
	}
	return n
}

// ── Catalog ───────────────────────────────────────────────────────────────────

func TestDefinitionsByCategory_StableOrder(t *testing.T) {
	got := DefinitionsByCategory(CategoryPersonalization)
	ids := make([]ID, len(got))
	for i, d := range got {
		ids[i] = d.ID
	}
	assert.Equal(t, []ID{Text, Print, Engrave, Emboss}, ids)
	assert.Empty(t, DefinitionsByCategory("nope"))
}

func TestLookup_UnknownPanics(t *testing.T) {
	assert.False(t, Known("hologram"))
	assert.Panics(t, func() { Lookup("hologram") })
	assert.Equal(t, "Size", Lookup(Size).Label)
}

// ── Enable ────────────────────────────────────────────────────────────────────

func TestEnable_SeedsDefaults(t *testing.T) {
	cfg := Enable(Material, []string{"p1", "p2"})

	assert.Equal(t, Material, cfg.CapabilityID)
	assert.False(t, cfg.IsConfigured)
	assert.Equal(t, []string{"p1", "p2"}, cfg.AppliesTo.PartIDs())
	assert.False(t, cfg.AppliesTo.IsWholeProduct())
	assert.Empty(t, cfg.Options)
	assert.Equal(t, DefaultExportFormats(), cfg.ExportFormats)
	assert.Equal(t, PricingPerOption, cfg.Pricing.Type)
	assert.Nil(t, cfg.SizeOptions)
	assert.Nil(t, cfg.TextOptions)
}

func TestEnable_NoPartsMeansWholeProduct(t *testing.T) {
	cfg := Enable(Color, nil)
	assert.True(t, cfg.AppliesTo.IsWholeProduct())
	assert.Nil(t, cfg.AppliesTo.PartIDs())
}

func TestEnable_FreshValuePerCall(t *testing.T) {
	a := Enable(Text, nil)
	b := Enable(Text, nil)
	a.ExportFormats[0] = ExportSTL
	a.TextOptions.MaxCharacters = 99

	assert.Equal(t, ExportGLB, b.ExportFormats[0])
	assert.Equal(t, 20, b.TextOptions.MaxCharacters)
	assert.Equal(t, PricingNoCharge, b.Pricing.Type)
}

func TestEnable_SizeSeedsSizeOptions(t *testing.T) {
	cfg := Enable(Size, []string{"p1"})
	require.NotNil(t, cfg.SizeOptions)
	assert.Equal(t, SizeDiscrete, cfg.SizeOptions.Mode)
	assert.Empty(t, cfg.SizeOptions.EnabledDimensions())
}

// ── Applies-to ────────────────────────────────────────────────────────────────

func TestSetAppliesTo_ScopesAreExclusive(t *testing.T) {
	cfg := Enable(Material, []string{"p1"})

	whole := SetAppliesTo(cfg, WholeProduct())
	assert.True(t, whole.AppliesTo.IsWholeProduct())
	assert.Empty(t, whole.AppliesTo.PartIDs())

	explicit := SetAppliesTo(whole, Parts("p2", "p3", "p2"))
	assert.False(t, explicit.AppliesTo.IsWholeProduct())
	assert.Equal(t, []string{"p2", "p3"}, explicit.AppliesTo.PartIDs())

	// input untouched
	assert.Equal(t, []string{"p1"}, cfg.AppliesTo.PartIDs())
}

func TestAppliesTo_JSON(t *testing.T) {
	b, err := json.Marshal(WholeProduct())
	require.NoError(t, err)
	assert.JSONEq(t, `"whole_product"`, string(b))

	b, err = json.Marshal(Parts("a", "b"))
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(b))

	var legacy AppliesTo
	require.NoError(t, json.Unmarshal([]byte(`["a","whole_product","b"]`), &legacy))
	assert.True(t, legacy.IsWholeProduct())
	assert.Empty(t, legacy.PartIDs())

	var bad AppliesTo
	assert.Error(t, json.Unmarshal([]byte(`"everything"`), &bad))
}

// ── Options & defaults ────────────────────────────────────────────────────────

func TestAddOption_FirstIsDefault(t *testing.T) {
	cfg := AddOption(Enable(Color, nil))
	cfg = AddOption(cfg)

	require.Len(t, cfg.Options, 2)
	assert.True(t, cfg.Options[0].IsDefault)
	assert.False(t, cfg.Options[1].IsDefault)
	assert.True(t, cfg.Options[1].PriceModifier.IsZero())
	assert.NotEqual(t, cfg.Options[0].ID, cfg.Options[1].ID)
}

func TestSetDefault_FlipsPreviousInSameUpdate(t *testing.T) {
	cfg := AddOption(AddOption(Enable(Color, nil)))
	first, second := cfg.Options[0].ID, cfg.Options[1].ID

	next := SetDefault(cfg, second)

	assert.False(t, next.Options[0].IsDefault)
	assert.True(t, next.Options[1].IsDefault)
	assert.Equal(t, 1, countDefaults(next))
	// the previous value still has its own default
	assert.True(t, cfg.Options[0].IsDefault)
	assert.Equal(t, first, cfg.Options[0].ID)
}

func TestSetDefault_UnknownIDIsNoop(t *testing.T) {
	cfg := AddOption(Enable(Color, nil))
	next := SetDefault(cfg, "missing")
	assert.Equal(t, cfg, next)
}

func TestRemoveOption_DefaultPassesToFirstRemaining(t *testing.T) {
	cfg := AddOption(AddOption(AddOption(Enable(Material, nil))))
	cfg = RenameOption(cfg, cfg.Options[0].ID, "Oak")
	cfg = RenameOption(cfg, cfg.Options[1].ID, "Walnut")

	next := RemoveOption(cfg, cfg.Options[0].ID)

	require.Len(t, next.Options, 2)
	assert.Equal(t, "Walnut", next.Options[0].Name)
	assert.True(t, next.Options[0].IsDefault)
	assert.Equal(t, 1, countDefaults(next))
}

func TestRemoveOption_DiscardUnnamedDraft(t *testing.T) {
	cfg := AddOption(Enable(Material, nil))
	cfg = RenameOption(cfg, cfg.Options[0].ID, "Oak")
	cfg = AddOption(cfg)
	draftID := cfg.Options[1].ID

	next := RemoveOption(cfg, draftID)

	require.Len(t, next.Options, 1)
	assert.Equal(t, "Oak", next.Options[0].Name)
	assert.True(t, next.Options[0].IsDefault)
	assert.Equal(t, cfg, RemoveOption(cfg, "missing"))
}

func TestOptionSequences_AtMostOneDefault(t *testing.T) {
	cfg := Enable(Color, nil)
	steps := []func(Configuration) Configuration{
		AddOption,
		AddOption,
		func(c Configuration) Configuration { return SetDefault(c, c.Options[1].ID) },
		AddOption,
		func(c Configuration) Configuration { return RemoveOption(c, c.Options[1].ID) },
		func(c Configuration) Configuration { return SetDefault(c, c.Options[1].ID) },
		func(c Configuration) Configuration { return RemoveOption(c, c.Options[0].ID) },
		func(c Configuration) Configuration { return RemoveOption(c, c.Options[0].ID) },
		AddOption,
	}
	for i, step := range steps {
		cfg = step(cfg)
		assert.LessOrEqual(t, countDefaults(cfg), 1, "step %d", i)
		if len(cfg.Options) > 0 {
			assert.Equal(t, 1, countDefaults(cfg), "step %d", i)
		}
	}
}

func TestSetOptionPrice(t *testing.T) {
	cfg := AddOption(Enable(Material, nil))
	id := cfg.Options[0].ID
	next := SetOptionPrice(cfg, id, decimal.NewFromFloat(4.5))
	assert.True(t, decimal.NewFromFloat(4.5).Equal(next.Options[0].PriceModifier))
	assert.True(t, cfg.Options[0].PriceModifier.IsZero())
}

// ── Pricing model ─────────────────────────────────────────────────────────────

func TestSetPricing_ReplacesWholesale(t *testing.T) {
	cfg := Enable(Material, nil)
	cfg = SetPricing(cfg, FixedPricing(decimal.NewFromInt(5)))
	assert.Equal(t, PricingFixed, cfg.Pricing.Type)

	cfg = SetPricing(cfg, NoChargePricing())
	assert.Equal(t, PricingNoCharge, cfg.Pricing.Type)
	assert.True(t, cfg.Pricing.Amount.IsZero())

	assert.Equal(t, cfg, SetPricing(cfg, Pricing{Type: "bogus"}))
}

func TestPricing_JSON(t *testing.T) {
	b, err := json.Marshal(PerUnitPricing(decimal.NewFromFloat(0.5)))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"per_unit","amount":"0.5"}`, string(b))

	b, err = json.Marshal(PerOptionPricing())
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"per_option"}`, string(b))

	var p Pricing
	assert.ErrorIs(t, json.Unmarshal([]byte(`{"type":"auction"}`), &p), ErrUnknownPricingType)
}

// ── Zones & text ──────────────────────────────────────────────────────────────

func TestAddZone_OnlyForZoneCapabilities(t *testing.T) {
	text := Enable(Text, []string{"p1"})
	next, id := AddZone(text, Zone{Name: "Front", PartID: "p1"})
	require.NotEmpty(t, id)
	require.Len(t, next.Zones, 1)

	color := Enable(Color, nil)
	same, none := AddZone(color, Zone{Name: "Front", PartID: "p1"})
	assert.Empty(t, none)
	assert.Equal(t, color, same)

	removed := RemoveZone(next, id)
	assert.Empty(t, removed.Zones)
}

func TestZonesFor_FiltersByAllowedCapabilities(t *testing.T) {
	zones := []Zone{
		{ID: "z1", PartID: "p1"},
		{ID: "z2", PartID: "p1", AllowedCapabilities: []ID{Engrave}},
		{ID: "z3", PartID: "p2", AllowedCapabilities: []ID{Text, Print}},
	}
	got := ZonesFor(zones, Text)
	require.Len(t, got, 2)
	assert.Equal(t, "z1", got[0].ID)
	assert.Equal(t, "z3", got[1].ID)
}

func TestSetTextOptions_RejectsInvertedBounds(t *testing.T) {
	cfg := Enable(Engrave, nil)
	same := SetTextOptions(cfg, TextOptions{MinCharacters: 10, MaxCharacters: 2})
	assert.Equal(t, cfg, same)

	next := SetTextOptions(cfg, TextOptions{MinCharacters: 1, MaxCharacters: 12, Fonts: []string{"Inter"}})
	assert.Equal(t, 12, next.TextOptions.MaxCharacters)

	color := Enable(Color, nil)
	assert.Equal(t, color, SetTextOptions(color, TextOptions{MaxCharacters: 5}))
}

// ── Normalize ─────────────────────────────────────────────────────────────────

func TestNormalize_KeepsFirstDefault(t *testing.T) {
	cfg := Configuration{
		CapabilityID: Material,
		Options: []Option{
			{ID: "a", IsDefault: false},
			{ID: "b", IsDefault: true},
			{ID: "c", IsDefault: true},
		},
	}
	out := Normalize(cfg)
	assert.Equal(t, 1, countDefaults(out))
	assert.True(t, out.Options[1].IsDefault)
	assert.Equal(t, DefaultExportFormats(), out.ExportFormats)
	assert.Equal(t, PricingNoCharge, out.Pricing.Type)
	assert.NotNil(t, out.Zones)
}
