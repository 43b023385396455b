package draft

import (
	"encoding/json"
	"time"
)

// encoded is the persisted form of a Draft. The raw states travel as JSON
// strings because json.Marshal compacts a RawMessage and jsonb reorders its
// keys; a string survives both byte for byte.
type encoded struct {
	Step            int       `json:"step"`
	PurchaseMode    string    `json:"purchaseMode"`
	VariantMode     string    `json:"variantMode"`
	VariantID       *string   `json:"variantId,omitempty"`
	CapabilityState *string   `json:"capabilityState,omitempty"`
	MeshState       *string   `json:"meshState,omitempty"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Encode serializes d so that Decode returns a deep-equal Draft.
func Encode(d Draft) ([]byte, error) {
	return json.Marshal(encoded{
		Step:            d.Step,
		PurchaseMode:    d.PurchaseMode,
		VariantMode:     d.VariantMode,
		VariantID:       d.VariantID,
		CapabilityState: rawString(d.CapabilityState),
		MeshState:       rawString(d.MeshState),
		UpdatedAt:       d.UpdatedAt,
	})
}

func Decode(b []byte) (*Draft, error) {
	var e encoded
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, err
	}
	return &Draft{
		Step:            e.Step,
		PurchaseMode:    e.PurchaseMode,
		VariantMode:     e.VariantMode,
		VariantID:       e.VariantID,
		CapabilityState: stringRaw(e.CapabilityState),
		MeshState:       stringRaw(e.MeshState),
		UpdatedAt:       e.UpdatedAt,
	}, nil
}

func rawString(raw json.RawMessage) *string {
	if raw == nil {
		return nil
	}
	s := string(raw)
	return &s
}

func stringRaw(s *string) json.RawMessage {
	if s == nil {
		return nil
	}
	return json.RawMessage(*s)
}
