package docmodel

import "encoding/json"

// Extras preserves unknown JSON object fields in their originally observed
// order, so a document loaded by a newer schema version and saved by this
// one round-trips byte-identically (spec.md 4.2, "Forward compatibility").
//
// It is embedded by value into each document's Go struct rather than being
// the struct itself, mirroring manifest/common.go's dupStringStringMap: a
// small, explicit helper around a loosely-typed map, not a generic
// "DynamicStruct" abstraction.
type Extras struct {
	keys []string
	vals map[string]json.RawMessage
}

// Set records or overwrites an extra field, preserving its original
// position if it already existed.
func (e *Extras) Set(key string, raw json.RawMessage) {
	if e.vals == nil {
		e.vals = make(map[string]json.RawMessage)
	}
	if _, ok := e.vals[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.vals[key] = raw
}

// Get returns the raw value for key, if present.
func (e *Extras) Get(key string) (json.RawMessage, bool) {
	v, ok := e.vals[key]
	return v, ok
}

// Keys returns the extras in their observed order.
func (e *Extras) Keys() []string {
	return append([]string(nil), e.keys...)
}

// Len reports the number of extra fields.
func (e *Extras) Len() int { return len(e.keys) }

// appendRawObjectFields writes each extra as ,"key":value into buf, in
// original order. It assumes buf already holds a JSON object with at least
// one field and no trailing '}'.
func (e *Extras) appendRawObjectFields(buf []byte) ([]byte, error) {
	for _, k := range e.keys {
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf = append(buf, ',')
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, e.vals[k]...)
	}
	return buf, nil
}

// extractExtras unmarshals raw into a map, removes the fields named in
// known, and returns an Extras preserving the remaining fields' relative
// order as they appeared in raw.
func extractExtras(raw []byte, known map[string]bool) (Extras, error) {
	order, err := objectKeyOrder(raw)
	if err != nil {
		return Extras{}, err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(raw, &all); err != nil {
		return Extras{}, err
	}

	var ex Extras
	for _, k := range order {
		if known[k] {
			continue
		}
		v, ok := all[k]
		if !ok {
			continue
		}
		ex.Set(k, v)
	}
	return ex, nil
}
