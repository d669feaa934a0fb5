package crdt

import (
	"encoding/json"

	"github.com/amaydixit11/deltacrdt/internal/core"
)

// Registry aggregates named LWWMap and MVMap instances under one
// shared Source, the same way the teacher's Replica aggregates an
// LWWSet of entries with per-entry ORSet tags under one shared clock.
// It adds no new CRDT semantics: Merge and GenerateDelta just fan out
// to each named child.
type Registry struct {
	source   Source
	lwwMaps  map[string]*LWWMap
	mvMaps   map[string]*MVMap
}

// NewRegistry returns an empty registry drawing timestamps from source.
func NewRegistry(source Source) *Registry {
	return &Registry{
		source:  source,
		lwwMaps: make(map[string]*LWWMap),
		mvMaps:  make(map[string]*MVMap),
	}
}

// LWWMap returns the named LWWMap, creating it empty if it doesn't exist.
func (reg *Registry) LWWMap(name string) *LWWMap {
	m, ok := reg.lwwMaps[name]
	if !ok {
		m = NewLWWMap()
		reg.lwwMaps[name] = m
	}
	return m
}

// MVMap returns the named MVMap, creating it empty if it doesn't exist.
func (reg *Registry) MVMap(name string) *MVMap {
	m, ok := reg.mvMaps[name]
	if !ok {
		m = NewMVMap()
		reg.mvMaps[name] = m
	}
	return m
}

// Source returns the registry's timestamp source, for callers
// performing a Put/Delete against one of the named children.
func (reg *Registry) Source() Source {
	return reg.source
}

// Merge folds delta into reg: every named child present in delta is
// merged into the matching local child (created empty first if absent).
func (reg *Registry) Merge(delta *Registry) {
	for name, d := range delta.lwwMaps {
		reg.LWWMap(name).Merge(d)
	}
	for name, d := range delta.mvMaps {
		reg.MVMap(name).Merge(d)
	}
}

// GenerateDelta returns the subset of every named child not yet
// covered by vvs, keyed the same way a gossip peer would index its own
// per-collection version vectors.
func (reg *Registry) GenerateDelta(vvs map[string]*core.VersionVector) *Registry {
	out := &Registry{lwwMaps: make(map[string]*LWWMap), mvMaps: make(map[string]*MVMap)}
	for name, m := range reg.lwwMaps {
		vv := vvs["lww:"+name]
		if vv == nil {
			vv = core.NewVersionVector()
		}
		out.lwwMaps[name] = m.GenerateDelta(vv)
	}
	for name, m := range reg.mvMaps {
		vv := vvs["mv:"+name]
		if vv == nil {
			vv = core.NewVersionVector()
		}
		out.mvMaps[name] = m.GenerateDelta(vv)
	}
	return out
}

// VersionVectors returns one version vector per named child, keyed
// "lww:<name>" or "mv:<name>" so both collections can share one flat
// map without name collisions on the wire.
func (reg *Registry) VersionVectors() map[string]*core.VersionVector {
	out := make(map[string]*core.VersionVector, len(reg.lwwMaps)+len(reg.mvMaps))
	for name, m := range reg.lwwMaps {
		out["lww:"+name] = m.VersionVector()
	}
	for name, m := range reg.mvMaps {
		out["mv:"+name] = m.VersionVector()
	}
	return out
}

// Names returns the LWWMap and MVMap child names currently registered.
func (reg *Registry) Names() (lwwMaps, mvMaps []string) {
	for name := range reg.lwwMaps {
		lwwMaps = append(lwwMaps, name)
	}
	for name := range reg.mvMaps {
		mvMaps = append(mvMaps, name)
	}
	return lwwMaps, mvMaps
}

// registryWire is the on-the-wire shape: one JSON object per child
// collection, keyed by the registry's own child name.
type registryWire struct {
	LWWMaps map[string]json.RawMessage `json:"lwwMaps"`
	MVMaps  map[string]json.RawMessage `json:"mvMaps"`
}

// ToJSON encodes every named child.
func (reg *Registry) ToJSON() ([]byte, error) {
	w := registryWire{
		LWWMaps: make(map[string]json.RawMessage, len(reg.lwwMaps)),
		MVMaps:  make(map[string]json.RawMessage, len(reg.mvMaps)),
	}
	for name, m := range reg.lwwMaps {
		raw, err := m.ToJSON()
		if err != nil {
			return nil, err
		}
		w.LWWMaps[name] = raw
	}
	for name, m := range reg.mvMaps {
		raw, err := m.ToJSON()
		if err != nil {
			return nil, err
		}
		w.MVMaps[name] = raw
	}
	return json.Marshal(w)
}

// FromJSONRegistry decodes a registry previously produced by ToJSON.
// The decoded registry has no Source attached; callers must wire one
// in with Attach before issuing further mutations.
func FromJSONRegistry(data []byte) (*Registry, error) {
	var w registryWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &ErrMalformedJSON{Type: "Registry", Reason: err.Error()}
	}
	reg := &Registry{lwwMaps: make(map[string]*LWWMap), mvMaps: make(map[string]*MVMap)}
	for name, raw := range w.LWWMaps {
		m, err := FromJSONLWWMap(raw)
		if err != nil {
			return nil, err
		}
		reg.lwwMaps[name] = m
	}
	for name, raw := range w.MVMaps {
		m, err := FromJSONMVMap(raw)
		if err != nil {
			return nil, err
		}
		reg.mvMaps[name] = m
	}
	return reg, nil
}

// Attach wires source into a registry decoded from JSON.
func (reg *Registry) Attach(source Source) {
	reg.source = source
}
