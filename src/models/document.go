package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// -----------------------------------------------------------------------------
// Kind identifies one of the four snapshot slots.
// -----------------------------------------------------------------------------

type Kind int

const (
	KindState Kind = iota
	KindOrders
	KindConfig
	KindReport
)

// AllKinds lists the slots in pull order.
var AllKinds = [...]Kind{KindState, KindOrders, KindConfig, KindReport}

func (k Kind) String() string {
	switch k {
	case KindState:
		return "state"
	case KindOrders:
		return "orders"
	case KindConfig:
		return "config"
	case KindReport:
		return "report"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Endpoint is the pull file published by the trading process for this kind.
func (k Kind) Endpoint() string {
	return k.String() + ".json"
}

// ParseKind maps a push-message key back to its Kind.
func ParseKind(s string) (Kind, bool) {
	for _, k := range AllKinds {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// -----------------------------------------------------------------------------
// Document is one snapshot held as its top-level JSON object. Nested values
// stay as raw bytes, so replacing one key never touches the others.
// -----------------------------------------------------------------------------

type Document map[string]json.RawMessage

// ParseDocument decodes a JSON object. Anything else (array, scalar, null,
// malformed input) is an error.
func ParseDocument(data []byte) (Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("snapshot is not a JSON object")
	}

	var doc Document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// Clone copies the key set. Raw values are shared: they are never mutated in
// place, only replaced.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// DecodeLenient fills the typed view v field by field. Keys whose values do
// not fit their field are skipped instead of failing the whole view.
func (d Document) DecodeLenient(v interface{}) {
	decodeFields(d, v)
}

// Raw returns the raw value stored under key, or nil when absent.
func (d Document) Raw(key string) json.RawMessage {
	if d == nil {
		return nil
	}
	return d[key]
}

// Value decodes a single top-level key into a generic Go value.
func (d Document) Value(key string) (interface{}, bool) {
	raw, ok := d[key]
	if !ok {
		return nil, false
	}
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	return v, true
}
