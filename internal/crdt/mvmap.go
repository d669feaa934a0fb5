package crdt

import (
	"encoding/json"

	"github.com/amaydixit11/deltacrdt/internal/core"
)

// MVMap is structurally an MVRegister keyed by (key, type tag), with a
// single causal context shared across every key in the map. Mutating
// any one key's set mutates the shared version vector, because the
// vector summarizes all operations ever observed by this MVMap
// instance, not just one key's.
type MVMap struct {
	sets map[mapKey]map[core.Timestamp]TaggedValue
	cc   *core.VersionVector
}

// NewMVMap returns an empty map with an empty causal context.
func NewMVMap() *MVMap {
	return &MVMap{sets: make(map[mapKey]map[core.Timestamp]TaggedValue), cc: core.NewVersionVector()}
}

func (m *MVMap) ensure() {
	if m.sets == nil {
		m.sets = make(map[mapKey]map[core.Timestamp]TaggedValue)
	}
	if m.cc == nil {
		m.cc = core.NewVersionVector()
	}
}

func (m *MVMap) put(key string, val TaggedValue, ts core.Timestamp) *MVMap {
	m.ensure()
	if m.cc.Contains(ts) {
		return NewMVMap()
	}
	k := mapKey{Key: key, Tag: val.Tag}
	m.sets[k] = map[core.Timestamp]TaggedValue{ts: val}
	m.cc.Add(ts)

	delta := NewMVMap()
	delta.sets[k] = map[core.Timestamp]TaggedValue{ts: val}
	delta.cc.Add(ts)
	return delta
}

// PutBool sets a boolean value for key at ts.
func (m *MVMap) PutBool(key string, val bool, ts core.Timestamp) *MVMap {
	return m.put(key, boolValue(val), ts)
}

// PutDouble sets a float64 value for key at ts.
func (m *MVMap) PutDouble(key string, val float64, ts core.Timestamp) *MVMap {
	return m.put(key, doubleValue(val), ts)
}

// PutInt sets an int32 value for key at ts.
func (m *MVMap) PutInt(key string, val int32, ts core.Timestamp) *MVMap {
	return m.put(key, intValue(val), ts)
}

// PutString sets a string value for key at ts.
func (m *MVMap) PutString(key string, val string, ts core.Timestamp) *MVMap {
	return m.put(key, stringValue(val), ts)
}

// Delete tombstones the given type under key at ts.
func (m *MVMap) Delete(key string, tag TypeTag, ts core.Timestamp) *MVMap {
	return m.put(key, tombstone(tag), ts)
}

func (m *MVMap) values(key string, tag TypeTag) []TaggedValue {
	set, ok := m.sets[mapKey{Key: key, Tag: tag}]
	if !ok {
		return nil
	}
	out := make([]TaggedValue, 0, len(set))
	for _, v := range set {
		if !v.Tombstone {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// GetStrings returns the set of concurrently-retained string values
// under key. Absent (ok=false) means the key holds only a tombstone
// or was never written.
func (m *MVMap) GetStrings(key string) (values []string, ok bool) {
	vs := m.values(key, TagString)
	if vs == nil {
		return nil, false
	}
	for _, v := range vs {
		values = append(values, v.Str)
	}
	return values, true
}

// GetInts returns the set of concurrently-retained int32 values under key.
func (m *MVMap) GetInts(key string) (values []int32, ok bool) {
	vs := m.values(key, TagInteger)
	if vs == nil {
		return nil, false
	}
	for _, v := range vs {
		values = append(values, v.Int)
	}
	return values, true
}

// GetDoubles returns the set of concurrently-retained float64 values under key.
func (m *MVMap) GetDoubles(key string) (values []float64, ok bool) {
	vs := m.values(key, TagDouble)
	if vs == nil {
		return nil, false
	}
	for _, v := range vs {
		values = append(values, v.Double)
	}
	return values, true
}

// GetBools returns the set of concurrently-retained bool values under key.
func (m *MVMap) GetBools(key string) (values []bool, ok bool) {
	vs := m.values(key, TagBoolean)
	if vs == nil {
		return nil, false
	}
	for _, v := range vs {
		values = append(values, v.Bool)
	}
	return values, true
}

// Merge folds delta into m per §4.6: for every key present in delta, a
// fresh kept-set is built from entries that survive the other side's
// observation, then the shared causal context is pointwise-maxed. Keys
// present only in m are left untouched — the delta carries no
// information about them.
func (m *MVMap) Merge(delta *MVMap) {
	m.ensure()
	delta.ensure()

	for k, deltaSet := range delta.sets {
		kept := make(map[core.Timestamp]TaggedValue)

		for ts, v := range m.sets[k] {
			if _, inDelta := deltaSet[ts]; !delta.cc.Contains(ts) || inDelta {
				kept[ts] = v
			}
		}
		for ts, v := range deltaSet {
			if !m.cc.Contains(ts) {
				kept[ts] = v
			}
		}

		m.sets[k] = kept
	}

	m.cc.Max(delta.cc)
}

// VersionVector returns the map's shared causal context, for
// collaborators that need to ask "what have you not seen yet".
func (m *MVMap) VersionVector() *core.VersionVector {
	return m.cc.Clone()
}

// GenerateDelta returns the keys whose set contains any timestamp not
// covered by vv; the delta's causal context is always the full local
// context, per §4.6.
func (m *MVMap) GenerateDelta(vv *core.VersionVector) *MVMap {
	out := NewMVMap()
	for k, set := range m.sets {
		for ts, v := range set {
			if !vv.Contains(ts) {
				if _, ok := out.sets[k]; !ok {
					out.sets[k] = make(map[core.Timestamp]TaggedValue)
				}
				out.sets[k][ts] = v
			}
		}
	}
	out.cc = m.cc.Clone()
	return out
}

// ToJSON encodes the map per §6.2: metadata carries, per key%TAG, the
// parallel list of timestamps; the top-level object carries, under the
// same key%TAG, the parallel list of values.
func (m *MVMap) ToJSON() ([]byte, error) {
	raw := map[string]json.RawMessage{}

	metaEntries := map[string][]core.Timestamp{}
	causalContext := m.cc.Entries()

	for k, set := range m.sets {
		wk := k.wire()
		var tss []core.Timestamp
		var vals []json.RawMessage
		for ts, v := range set {
			tss = append(tss, ts)
			encoded, err := encodeTaggedValue(v)
			if err != nil {
				return nil, err
			}
			vals = append(vals, encoded)
		}
		metaEntries[wk] = tss
		valsJSON, err := json.Marshal(vals)
		if err != nil {
			return nil, err
		}
		raw[wk] = valsJSON
	}

	metadata := map[string]any{
		"entries":       metaEntries,
		"causalContext": causalContext,
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}

	raw["_type"] = json.RawMessage(`"MVMap"`)
	raw["_metadata"] = metadataJSON

	return json.Marshal(raw)
}

// FromJSONMVMap decodes a map previously produced by ToJSON.
func FromJSONMVMap(data []byte) (*MVMap, error) {
	if err := validateWire("MVMap", mvMapSchema, data); err != nil {
		return nil, err
	}
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, &ErrMalformedJSON{Type: "MVMap", Reason: err.Error()}
	}

	typeRaw, ok := flat["_type"]
	if ok {
		var typ string
		if err := json.Unmarshal(typeRaw, &typ); err == nil && typ != "MVMap" {
			return nil, &ErrUnexpectedType{Want: "MVMap", Got: typ}
		}
	}

	var metadata struct {
		Entries       map[string][]core.Timestamp     `json:"entries"`
		CausalContext map[core.ReplicaID]int64         `json:"causalContext"`
	}
	metaRaw, ok := flat["_metadata"]
	if !ok {
		return nil, &ErrMalformedJSON{Type: "MVMap", Reason: "missing _metadata"}
	}
	if err := json.Unmarshal(metaRaw, &metadata); err != nil {
		return nil, &ErrMalformedJSON{Type: "MVMap", Reason: err.Error()}
	}

	m := NewMVMap()
	for id, c := range metadata.CausalContext {
		m.cc.Add(core.Timestamp{Counter: c, Replica: id})
	}

	for wireKey, timestamps := range metadata.Entries {
		k, err := parseMapKey(wireKey)
		if err != nil {
			return nil, err
		}
		valsRaw, ok := flat[wireKey]
		if !ok {
			return nil, &ErrMalformedJSON{Type: "MVMap", Reason: "missing values for key " + wireKey}
		}
		var vals []json.RawMessage
		if err := json.Unmarshal(valsRaw, &vals); err != nil {
			return nil, &ErrMalformedJSON{Type: "MVMap", Reason: err.Error()}
		}
		if len(vals) != len(timestamps) {
			return nil, &ErrMalformedJSON{Type: "MVMap", Reason: "entries/value length mismatch for key " + wireKey}
		}
		set := make(map[core.Timestamp]TaggedValue, len(vals))
		for i, ts := range timestamps {
			tv, err := decodeTaggedValue(k.Tag, vals[i])
			if err != nil {
				return nil, err
			}
			set[ts] = tv
		}
		m.sets[k] = set
	}

	return m, nil
}
