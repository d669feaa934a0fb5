package crdt

import (
	"encoding/json"
	"strings"

	"github.com/amaydixit11/deltacrdt/internal/core"
)

type lwwMapEntry struct {
	value TaggedValue
	ts    core.Timestamp
}

// LWWMap is a map from string key to value with independent
// last-writer-wins resolution per (key, type) pair, including deletes
// recorded as tombstones through the same timestamp channel.
type LWWMap struct {
	entries map[mapKey]lwwMapEntry
}

// NewLWWMap returns an empty map.
func NewLWWMap() *LWWMap {
	return &LWWMap{entries: make(map[mapKey]lwwMapEntry)}
}

func (m *LWWMap) ensure() map[mapKey]lwwMapEntry {
	if m.entries == nil {
		m.entries = make(map[mapKey]lwwMapEntry)
	}
	return m.entries
}

func (m *LWWMap) put(key string, val TaggedValue, ts core.Timestamp) *LWWMap {
	k := mapKey{Key: key, Tag: val.Tag}
	entries := m.ensure()
	if existing, ok := entries[k]; ok && !ts.After(existing.ts) {
		return NewLWWMap()
	}
	entries[k] = lwwMapEntry{value: val, ts: ts}
	return &LWWMap{entries: map[mapKey]lwwMapEntry{k: {value: val, ts: ts}}}
}

// PutBool sets a boolean value for key. Returns a delta of just this entry.
func (m *LWWMap) PutBool(key string, val bool, ts core.Timestamp) *LWWMap {
	return m.put(key, boolValue(val), ts)
}

// PutDouble sets a float64 value for key.
func (m *LWWMap) PutDouble(key string, val float64, ts core.Timestamp) *LWWMap {
	return m.put(key, doubleValue(val), ts)
}

// PutInt sets an int32 value for key.
func (m *LWWMap) PutInt(key string, val int32, ts core.Timestamp) *LWWMap {
	return m.put(key, intValue(val), ts)
}

// PutString sets a string value for key.
func (m *LWWMap) PutString(key string, val string, ts core.Timestamp) *LWWMap {
	return m.put(key, stringValue(val), ts)
}

// Delete tombstones the value of the given type under key.
func (m *LWWMap) Delete(key string, tag TypeTag, ts core.Timestamp) *LWWMap {
	return m.put(key, tombstone(tag), ts)
}

func (m *LWWMap) get(key string, tag TypeTag) (TaggedValue, bool) {
	e, ok := m.entries[mapKey{Key: key, Tag: tag}]
	if !ok || e.value.Tombstone {
		return TaggedValue{}, false
	}
	return e.value, true
}

// GetBool returns the stored boolean for key, if present and not deleted.
func (m *LWWMap) GetBool(key string) (bool, bool) {
	v, ok := m.get(key, TagBoolean)
	return v.Bool, ok
}

// GetDouble returns the stored float64 for key, if present and not deleted.
func (m *LWWMap) GetDouble(key string) (float64, bool) {
	v, ok := m.get(key, TagDouble)
	return v.Double, ok
}

// GetInt returns the stored int32 for key, if present and not deleted.
func (m *LWWMap) GetInt(key string) (int32, bool) {
	v, ok := m.get(key, TagInteger)
	return v.Int, ok
}

// GetString returns the stored string for key, if present and not deleted.
func (m *LWWMap) GetString(key string) (string, bool) {
	v, ok := m.get(key, TagString)
	return v.Str, ok
}

// Keys returns every key currently holding a live (non-tombstoned)
// value of the given type, for collaborators (e.g. internal/search)
// that need to enumerate what to reindex.
func (m *LWWMap) Keys(tag TypeTag) []string {
	var keys []string
	for k, e := range m.entries {
		if k.Tag == tag && !e.value.Tombstone {
			keys = append(keys, k.Key)
		}
	}
	return keys
}

// Merge folds delta's entries into m: whichever side has the greater
// timestamp for a (key, type) pair wins; on a timestamp tie the local
// entry is kept, which is sound because timestamps are unique per the
// environment contract, so equal timestamps imply equal values.
func (m *LWWMap) Merge(delta *LWWMap) {
	entries := m.ensure()
	for k, incoming := range delta.entries {
		existing, ok := entries[k]
		if !ok || incoming.ts.After(existing.ts) {
			entries[k] = incoming
		}
	}
}

// VersionVector returns the version vector summarizing every timestamp
// this map has recorded, for collaborators (e.g. internal/gossip) that
// need to ask "what have you not seen yet" without tracking a separate
// causal context of their own.
func (m *LWWMap) VersionVector() *core.VersionVector {
	vv := core.NewVersionVector()
	for _, e := range m.entries {
		vv.Add(e.ts)
	}
	return vv
}

// GenerateDelta returns a map containing every entry whose timestamp
// is not already covered by vv.
func (m *LWWMap) GenerateDelta(vv *core.VersionVector) *LWWMap {
	out := NewLWWMap()
	for k, e := range m.entries {
		if !vv.Contains(e.ts) {
			out.entries[k] = e
		}
	}
	return out
}

// lwwMapWireEntry is one (key%TAG -> value, timestamp) entry on the wire.
type lwwMapWireEntry struct {
	Value json.RawMessage `json:"value"`
	Ts    core.Timestamp  `json:"ts"`
}

type lwwMapWire struct {
	Type    string                     `json:"_type"`
	Entries map[string]lwwMapWireEntry `json:"entries"`
}

// ToJSON encodes the map. Numeric values are encoded as JSON strings
// per §6.2 and parsed back into their typed fields on decode;
// tombstones encode as a bare JSON null.
func (m *LWWMap) ToJSON() ([]byte, error) {
	w := lwwMapWire{Type: "LWWMap", Entries: make(map[string]lwwMapWireEntry, len(m.entries))}
	for k, e := range m.entries {
		raw, err := encodeTaggedValue(e.value)
		if err != nil {
			return nil, err
		}
		w.Entries[k.wire()] = lwwMapWireEntry{Value: raw, Ts: e.ts}
	}
	return json.Marshal(w)
}

// FromJSONLWWMap decodes a map previously produced by ToJSON.
func FromJSONLWWMap(data []byte) (*LWWMap, error) {
	if err := validateWire("LWWMap", lwwMapSchema, data); err != nil {
		return nil, err
	}
	var w lwwMapWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &ErrMalformedJSON{Type: "LWWMap", Reason: err.Error()}
	}
	if w.Type != "" && w.Type != "LWWMap" {
		return nil, &ErrUnexpectedType{Want: "LWWMap", Got: w.Type}
	}
	m := NewLWWMap()
	for wireKey, we := range w.Entries {
		k, err := parseMapKey(wireKey)
		if err != nil {
			return nil, err
		}
		tv, err := decodeTaggedValue(k.Tag, we.Value)
		if err != nil {
			return nil, err
		}
		m.entries[k] = lwwMapEntry{value: tv, ts: we.Ts}
	}
	return m, nil
}

func parseMapKey(wire string) (mapKey, error) {
	idx := strings.LastIndex(wire, "%")
	if idx < 0 {
		return mapKey{}, &ErrMalformedJSON{Type: "LWWMap", Reason: "key missing %TAG suffix: " + wire}
	}
	return mapKey{Key: wire[:idx], Tag: TypeTag(wire[idx+1:])}, nil
}
