// Package wizard is the client side of the merchant wizard: it turns saved
// drafts into typed state, snapshots state back into drafts and fences draft
// loads so that a late response for a product the merchant already left never
// replaces what is on screen.
package wizard

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/capability"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/draft"
	"github.com/MoreVoMne/omnimio-ui-shell-sub002/internal/part"
)

const (
	PurchaseConfigure = "configure"
	VariantSingle     = "single"
)

// State is the in-memory wizard for one product.
type State struct {
	Step         int
	PurchaseMode string
	VariantMode  string
	VariantID    string

	// Enabled keeps the merchant's pick order; Capabilities holds one entry
	// per enabled id.
	Enabled      []capability.ID
	Capabilities map[capability.ID]capability.Configuration

	Parts part.Registry
}

// capabilityState is the stored shape of Draft.CapabilityState. Configurations
// stay raw so that each one can be merged over fresh defaults on load.
type capabilityState struct {
	Enabled        []capability.ID                   `json:"enabled"`
	Configurations map[capability.ID]json.RawMessage `json:"configurations"`
}

// NewState is the wizard before anything was picked.
func NewState(variantID string) State {
	return State{
		PurchaseMode: PurchaseConfigure,
		VariantMode:  VariantSingle,
		VariantID:    variantID,
		Enabled:      []capability.ID{},
		Capabilities: map[capability.ID]capability.Configuration{},
		Parts:        part.Registry{Parts: []part.Part{}, Groups: []part.Group{}},
	}
}

// Enable turns a capability on with defaults scoped to the named parts. An
// already enabled capability keeps its configuration.
func (s State) Enable(id capability.ID) State {
	if !capability.Known(id) {
		return s
	}
	if _, ok := s.Capabilities[id]; ok {
		return s
	}
	out := s.clone()
	out.Enabled = append(out.Enabled, id)
	out.Capabilities[id] = capability.Enable(id, s.Parts.PartIDs())
	return out
}

// Disable drops a capability and its configuration.
func (s State) Disable(id capability.ID) State {
	if _, ok := s.Capabilities[id]; !ok {
		return s
	}
	out := s.clone()
	delete(out.Capabilities, id)
	enabled := out.Enabled[:0]
	for _, e := range out.Enabled {
		if e != id {
			enabled = append(enabled, e)
		}
	}
	out.Enabled = enabled
	return out
}

// Configure applies fn to an enabled capability. Disabled ids are a no-op.
func (s State) Configure(id capability.ID, fn func(capability.Configuration) capability.Configuration) State {
	cfg, ok := s.Capabilities[id]
	if !ok {
		return s
	}
	out := s.clone()
	out.Capabilities[id] = fn(cfg)
	return out
}

func (s State) clone() State {
	out := s
	out.Enabled = append([]capability.ID{}, s.Enabled...)
	out.Capabilities = make(map[capability.ID]capability.Configuration, len(s.Capabilities))
	for id, cfg := range s.Capabilities {
		out.Capabilities[id] = cfg
	}
	return out
}

// Restore rebuilds a State from a draft. Every stored configuration is merged
// field by field over the defaults Enable would produce today, so drafts
// written by older shapes still load. A field that no longer decodes keeps its
// default. Unknown capability ids are dropped.
func Restore(d draft.Draft) (State, error) {
	st := NewState("")
	st.Step = d.Step
	if d.PurchaseMode != "" {
		st.PurchaseMode = d.PurchaseMode
	}
	if d.VariantMode != "" {
		st.VariantMode = d.VariantMode
	}
	if d.VariantID != nil {
		st.VariantID = *d.VariantID
	}

	if !isEmptyJSON(d.MeshState) {
		var reg part.Registry
		if err := json.Unmarshal(d.MeshState, &reg); err != nil {
			return State{}, fmt.Errorf("wizard: decode mesh state: %w", err)
		}
		if reg.Parts == nil {
			reg.Parts = []part.Part{}
		}
		if reg.Groups == nil {
			reg.Groups = []part.Group{}
		}
		st.Parts = reg.DedupeMeshes()
	}

	if isEmptyJSON(d.CapabilityState) {
		return st, nil
	}
	var cs capabilityState
	if err := json.Unmarshal(d.CapabilityState, &cs); err != nil {
		return State{}, fmt.Errorf("wizard: decode capability state: %w", err)
	}

	order := cs.Enabled
	if len(order) == 0 {
		// older drafts only kept the configurations
		for _, def := range capability.All() {
			if _, ok := cs.Configurations[def.ID]; ok {
				order = append(order, def.ID)
			}
		}
	}
	partIDs := st.Parts.PartIDs()
	for _, id := range order {
		if !capability.Known(id) {
			continue
		}
		if _, dup := st.Capabilities[id]; dup {
			continue
		}
		cfg := mergeOverDefaults(capability.Enable(id, partIDs), cs.Configurations[id])
		cfg.CapabilityID = id
		st.Enabled = append(st.Enabled, id)
		st.Capabilities[id] = capability.Normalize(cfg)
	}
	return st, nil
}

// mergeOverDefaults overlays the top-level fields of stored onto base.
func mergeOverDefaults(base capability.Configuration, stored json.RawMessage) capability.Configuration {
	if isEmptyJSON(stored) {
		return base
	}
	var overlay map[string]json.RawMessage
	if err := json.Unmarshal(stored, &overlay); err != nil {
		return base
	}
	b, err := json.Marshal(base)
	if err != nil {
		return base
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(b, &merged); err != nil {
		return base
	}

	for field, value := range overlay {
		prev, had := merged[field]
		merged[field] = value
		if _, err := decodeConfiguration(merged); err != nil {
			if had {
				merged[field] = prev
			} else {
				delete(merged, field)
			}
		}
	}
	cfg, err := decodeConfiguration(merged)
	if err != nil {
		return base
	}
	return cfg
}

func decodeConfiguration(fields map[string]json.RawMessage) (capability.Configuration, error) {
	var cfg capability.Configuration
	b, err := json.Marshal(fields)
	if err != nil {
		return cfg, err
	}
	err = json.Unmarshal(b, &cfg)
	return cfg, err
}

// Snapshot serializes the state into a draft. UpdatedAt is left for the server
// to stamp.
func (s State) Snapshot() (draft.Draft, error) {
	cs := capabilityState{
		Enabled:        append([]capability.ID{}, s.Enabled...),
		Configurations: make(map[capability.ID]json.RawMessage, len(s.Capabilities)),
	}
	for _, id := range s.Enabled {
		cfg, ok := s.Capabilities[id]
		if !ok {
			continue
		}
		b, err := json.Marshal(cfg)
		if err != nil {
			return draft.Draft{}, fmt.Errorf("wizard: encode %s configuration: %w", id, err)
		}
		cs.Configurations[id] = b
	}
	capState, err := json.Marshal(cs)
	if err != nil {
		return draft.Draft{}, fmt.Errorf("wizard: encode capability state: %w", err)
	}
	meshState, err := json.Marshal(s.Parts)
	if err != nil {
		return draft.Draft{}, fmt.Errorf("wizard: encode mesh state: %w", err)
	}

	d := draft.Draft{
		Step:            s.Step,
		PurchaseMode:    s.PurchaseMode,
		VariantMode:     s.VariantMode,
		CapabilityState: capState,
		MeshState:       meshState,
	}
	if s.VariantID != "" {
		v := s.VariantID
		d.VariantID = &v
	}
	return d, nil
}

func isEmptyJSON(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}
