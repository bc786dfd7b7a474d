package types

import "testing"

func TestPrimitiveMemoisation(t *testing.T) {
	a := Prim("i32")
	b := Prim("i32")
	if a != b {
		t.Fatal("Prim should return the same instance for the same name")
	}
	if !Equal(a, I32) {
		t.Fatal("Prim(\"i32\") should equal the package-level I32")
	}
}

func TestMultiTypeEquality(t *testing.T) {
	a := NewMultiType(I32, Width4)
	b := NewMultiType(I32, Width4)
	if !Equal(a, b) {
		t.Fatal("multi-types with equal element and width should be equal")
	}
	c := NewMultiType(I32, Width2)
	if Equal(a, c) {
		t.Fatal("multi-types with different width should not be equal")
	}
}

func TestErrorSetStableID(t *testing.T) {
	a := NewErrorSetType("ErrIO", nil, []string{"NotFound", "NotReadable"})
	b := NewErrorSetType("ErrIO", nil, []string{"NotFound", "NotReadable"})
	if a.ErrID != b.ErrID {
		t.Fatal("error sets with the same name should hash to the same id")
	}
	if !Equal(a, b) {
		t.Fatal("error sets are compared by id")
	}
}

func TestOptionalEquality(t *testing.T) {
	a := NewOptionalType(I32)
	b := NewOptionalType(I32)
	if !Equal(a, b) {
		t.Fatal("optionals over the same inner type should be equal")
	}
	if Equal(a, NewOptionalType(F64)) {
		t.Fatal("optionals over different inner types should not be equal")
	}
}

func TestHashNameStable(t *testing.T) {
	if HashName("ErrIO") != HashName("ErrIO") {
		t.Fatal("HashName must be deterministic")
	}
	if HashName("ErrIO") == HashName("ErrFS") {
		t.Fatal("different names should not collide in this small sample")
	}
}
