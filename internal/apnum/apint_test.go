package apnum

import (
	"strings"
	"testing"
)

func TestParseIntString(t *testing.T) {
	cases := []string{"0", "1", "-1", "123456789012345678901234567890", "-42", "007"}
	want := []string{"0", "1", "-1", "123456789012345678901234567890", "-42", "7"}
	for i, c := range cases {
		got := ParseInt(c).String()
		if got != want[i] {
			t.Errorf("ParseInt(%q).String() = %q, want %q", c, got, want[i])
		}
	}
}

func TestIntAddSub(t *testing.T) {
	a := ParseInt("999999999999999999")
	b := ParseInt("1")
	if got := a.Add(b).String(); got != "1000000000000000000" {
		t.Fatalf("Add carry: got %s", got)
	}
	if got := a.Sub(a).String(); got != "0" {
		t.Fatalf("Sub to zero: got %s", got)
	}
	if got := ParseInt("5").Sub(ParseInt("8")).String(); got != "-3" {
		t.Fatalf("Sub negative result: got %s", got)
	}
	if got := ParseInt("-5").Add(ParseInt("3")).String(); got != "-2" {
		t.Fatalf("mixed sign add: got %s", got)
	}
}

func TestIntMul(t *testing.T) {
	a := ParseInt("123456789")
	b := ParseInt("987654321")
	got := a.Mul(b).String()
	want := "121932631112635269"
	if got != want {
		t.Fatalf("Mul: got %s want %s", got, want)
	}
	if got := ParseInt("-3").Mul(ParseInt("4")).String(); got != "-12" {
		t.Fatalf("signed mul: got %s", got)
	}
}

func TestIntQuoRem(t *testing.T) {
	q, r := ParseInt("17").QuoRem(ParseInt("5"))
	if q.String() != "3" || r.String() != "2" {
		t.Fatalf("QuoRem(17,5) = %s,%s want 3,2", q, r)
	}
	q, r = ParseInt("-17").QuoRem(ParseInt("5"))
	if q.String() != "-3" || r.String() != "-2" {
		t.Fatalf("QuoRem(-17,5) = %s,%s want -3,-2", q, r)
	}
}

func TestIntDivByZeroPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on division by zero")
		}
	}()
	ParseInt("1").Div(Zero)
}

func TestIntPow(t *testing.T) {
	if got := ParseInt("2").Pow(ParseInt("10")).String(); got != "1024" {
		t.Fatalf("2^10 = %s, want 1024", got)
	}
	if got := ParseInt("5").Pow(Zero).String(); got != "1" {
		t.Fatalf("5^0 = %s, want 1", got)
	}
	if got := Zero.Pow(Zero).String(); got != "1" {
		t.Fatalf("0^0 = %s, want 1", got)
	}
	if got := ParseInt("-2").Pow(ParseInt("3")).String(); got != "-8" {
		t.Fatalf("(-2)^3 = %s, want -8", got)
	}
	if got := ParseInt("-2").Pow(ParseInt("2")).String(); got != "4" {
		t.Fatalf("(-2)^2 = %s, want 4", got)
	}
}

func TestIntNarrowing(t *testing.T) {
	if v, ok := ParseInt("255").ToU8(); !ok || v != 255 {
		t.Fatalf("255 should fit in u8: %v %v", v, ok)
	}
	if _, ok := ParseInt("256").ToU8(); ok {
		t.Fatal("256 should not fit in u8")
	}
	if _, ok := ParseInt("-1").ToU8(); ok {
		t.Fatal("-1 should not fit in u8")
	}
	if v, ok := ParseInt("-128").ToI8(); !ok || v != -128 {
		t.Fatalf("-128 should fit in i8: %v %v", v, ok)
	}
	if _, ok := ParseInt("-129").ToI8(); ok {
		t.Fatal("-129 should not fit in i8")
	}
	if v, ok := ParseInt("127").ToI8(); !ok || v != 127 {
		t.Fatalf("127 should fit in i8: %v %v", v, ok)
	}
	if _, ok := ParseInt("128").ToI8(); ok {
		t.Fatal("128 should not fit in i8")
	}
}

func TestIntCmp(t *testing.T) {
	if ParseInt("1").Cmp(ParseInt("2")) >= 0 {
		t.Fatal("1 should be less than 2")
	}
	if ParseInt("-1").Cmp(ParseInt("1")) >= 0 {
		t.Fatal("-1 should be less than 1")
	}
	if !ParseInt("-0").Eq(Zero) {
		t.Fatal("-0 should normalize to 0")
	}
}

func TestInt128MaxSquare(t *testing.T) {
	x := ParseInt("170141183460469231731687303715884105727")
	got := x.Mul(x).String()
	want := "28948022309329048855892746252171976963317496166410141009864396001978282409984"
	if !strings.HasPrefix(got, want) {
		t.Fatalf("square = %s, want prefix %s", got, want)
	}
}

func TestIntRoundTripThroughNarrowing(t *testing.T) {
	for _, c := range []string{"0", "1", "255", "65535", "4294967295"} {
		n := ParseInt(c)
		v, ok := n.ToU32()
		if !ok {
			t.Fatalf("%s should fit u32", c)
		}
		back := ParseInt(NewInt(int64(v)).String())
		w, ok := back.ToU32()
		if !ok || w != v {
			t.Fatalf("round trip of %s through u32 lost the value", c)
		}
	}
	if _, ok := ParseInt("4294967296").ToU32(); ok {
		t.Fatal("4294967296 must not fit u32")
	}
}
