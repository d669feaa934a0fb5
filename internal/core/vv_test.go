package core

import "testing"

func TestVersionVectorContains(t *testing.T) {
	v := NewVersionVector()
	if v.Contains(Timestamp{1, "a"}) {
		t.Error("empty vector should not contain any timestamp")
	}

	v.Add(Timestamp{5, "a"})
	if !v.Contains(Timestamp{3, "a"}) {
		t.Error("vector should contain a lower counter for a known replica")
	}
	if v.Contains(Timestamp{6, "a"}) {
		t.Error("vector should not contain a higher counter")
	}
	if v.Contains(Timestamp{1, "b"}) {
		t.Error("vector should not contain an unseen replica")
	}
}

func TestVersionVectorAddIsMax(t *testing.T) {
	v := NewVersionVector()
	v.Add(Timestamp{5, "a"})
	v.Add(Timestamp{3, "a"})
	if !v.Contains(Timestamp{5, "a"}) {
		t.Error("Add must not regress the counter for a replica")
	}
}

func TestVersionVectorMax(t *testing.T) {
	a := NewVersionVector()
	a.Add(Timestamp{5, "x"})
	b := NewVersionVector()
	b.Add(Timestamp{2, "x"})
	b.Add(Timestamp{7, "y"})

	a.Max(b)

	if !a.Contains(Timestamp{5, "x"}) || !a.Contains(Timestamp{7, "y"}) {
		t.Error("Max should be the pointwise maximum of both vectors")
	}
	if a.Contains(Timestamp{8, "y"}) {
		t.Error("Max should not invent counters beyond either input")
	}
}

func TestVersionVectorLessEqual(t *testing.T) {
	a := NewVersionVector()
	a.Add(Timestamp{1, "x"})

	b := NewVersionVector()
	b.Add(Timestamp{2, "x"})
	b.Add(Timestamp{1, "y"})

	if !a.LessEqual(b) {
		t.Error("a should be dominated by b")
	}
	if b.LessEqual(a) {
		t.Error("b should not be dominated by a")
	}

	empty := NewVersionVector()
	if !empty.LessEqual(a) {
		t.Error("the empty vector is dominated by every vector")
	}
}

func TestVersionVectorCloneIsIndependent(t *testing.T) {
	v := NewVersionVector()
	v.Add(Timestamp{1, "a"})
	clone := v.Clone()
	clone.Add(Timestamp{2, "a"})

	if v.Contains(Timestamp{2, "a"}) {
		t.Error("mutating a clone must not affect the original")
	}
}

func TestVersionVectorEqual(t *testing.T) {
	a := NewVersionVector()
	a.Add(Timestamp{3, "x"})
	b := NewVersionVector()
	b.Add(Timestamp{3, "x"})

	if !a.Equal(b) {
		t.Error("vectors with identical observed counters should be equal")
	}

	b.Add(Timestamp{1, "y"})
	if a.Equal(b) {
		t.Error("vectors with different observed counters should not be equal")
	}
}
