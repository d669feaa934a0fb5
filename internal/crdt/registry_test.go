package crdt

import (
	"testing"

	"github.com/amaydixit11/deltacrdt/internal/environment"
)

func TestRegistryMergeFansOutToNamedChildren(t *testing.T) {
	src := environment.NewClock("a", 0)
	reg := NewRegistry(src)
	reg.LWWMap("profile").PutString("name", "ada", src.Next())

	other := NewRegistry(environment.NewClock("b", 0))
	other.MVMap("tags").PutString("color", "blue", ts(1, "b"))

	reg.Merge(other)

	if v, ok := reg.LWWMap("profile").GetString("name"); !ok || v != "ada" {
		t.Errorf("expected profile.name to survive merge, got %q ok=%v", v, ok)
	}
	if vs, ok := reg.MVMap("tags").GetStrings("color"); !ok || len(vs) != 1 || vs[0] != "blue" {
		t.Errorf("expected tags.color to be merged in, got %v ok=%v", vs, ok)
	}
}

func TestRegistryGenerateDeltaUsesVersionVectors(t *testing.T) {
	src := environment.NewClock("a", 0)
	reg := NewRegistry(src)
	reg.LWWMap("profile").PutString("name", "ada", src.Next())
	reg.LWWMap("profile").PutString("city", "berlin", src.Next())

	vvs := reg.VersionVectors()
	delta := reg.GenerateDelta(vvs)
	if _, ok := delta.LWWMap("profile").GetString("name"); ok {
		t.Error("expected no entries in a delta generated from the registry's own version vectors")
	}

	full := reg.GenerateDelta(nil)
	if v, ok := full.LWWMap("profile").GetString("name"); !ok || v != "ada" {
		t.Errorf("expected a full delta with no observed vvs, got %q ok=%v", v, ok)
	}
}

func TestRegistryJSONRoundTrip(t *testing.T) {
	src := environment.NewClock("a", 0)
	reg := NewRegistry(src)
	reg.LWWMap("profile").PutString("name", "ada", src.Next())
	reg.MVMap("tags").PutString("color", "blue", src.Next())

	data, err := reg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	decoded, err := FromJSONRegistry(data)
	if err != nil {
		t.Fatalf("FromJSONRegistry: %v", err)
	}

	if v, ok := decoded.LWWMap("profile").GetString("name"); !ok || v != "ada" {
		t.Errorf("name mismatch after round trip: %q ok=%v", v, ok)
	}
}
