package apnum

import "testing"

func TestParseFloatString(t *testing.T) {
	cases := []struct{ in, want string }{
		{"0", "0"},
		{"1.5", "1.5"},
		{"-3.14", "-3.14"},
		{"2.00", "2"},
		{"0.100", "0.1"},
		{"10", "10"},
	}
	for _, c := range cases {
		got := ParseFloat(c.in).String()
		if got != c.want {
			t.Errorf("ParseFloat(%q).String() = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFloatAddSub(t *testing.T) {
	a := ParseFloat("1.5")
	b := ParseFloat("2.25")
	if got := a.Add(b).String(); got != "3.75" {
		t.Fatalf("1.5+2.25 = %s, want 3.75", got)
	}
	if got := b.Sub(a).String(); got != "0.75" {
		t.Fatalf("2.25-1.5 = %s, want 0.75", got)
	}
	if got := ParseFloat("-1.5").Add(ParseFloat("1.5")).String(); got != "0" {
		t.Fatalf("-1.5+1.5 = %s, want 0", got)
	}
}

func TestFloatMul(t *testing.T) {
	if got := ParseFloat("1.5").Mul(ParseFloat("2.0")).String(); got != "3" {
		t.Fatalf("1.5*2.0 = %s, want 3", got)
	}
	if got := ParseFloat("0.1").Mul(ParseFloat("0.2")).String(); got != "0.02" {
		t.Fatalf("0.1*0.2 = %s, want 0.02", got)
	}
}

func TestFloatDivTerminating(t *testing.T) {
	if got := ParseFloat("1").Div(ParseFloat("4")).String(); got != "0.25" {
		t.Fatalf("1/4 = %s, want 0.25", got)
	}
	if got := ParseFloat("10").Div(ParseFloat("2")).String(); got != "5" {
		t.Fatalf("10/2 = %s, want 5", got)
	}
}

func TestFloatDivCapsFractionalDigits(t *testing.T) {
	got := ParseFloat("1").Div(ParseFloat("3"))
	if len(got.frac) > MaxSignificantFracDigits {
		t.Fatalf("1/3 produced %d fractional digits, want <= %d", len(got.frac), MaxSignificantFracDigits)
	}
	if got.frac[0] != 3 {
		t.Fatalf("1/3 should start 0.3..., got %s", got.String())
	}
}

func TestFloatDivByZeroPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on division by zero")
		}
	}()
	ParseFloat("1").Div(ZeroFloat)
}

func TestFloatCmp(t *testing.T) {
	if ParseFloat("1.1").Cmp(ParseFloat("1.2")) >= 0 {
		t.Fatal("1.1 should be less than 1.2")
	}
	if !ParseFloat("-0.0").Eq(ZeroFloat) {
		t.Fatal("-0.0 should normalize to 0")
	}
}

func TestFloatToFloat64(t *testing.T) {
	got := ParseFloat("3.25").ToFloat64()
	if got != 3.25 {
		t.Fatalf("ToFloat64(3.25) = %v, want 3.25", got)
	}
	got = ParseFloat("-2.5").ToFloat64()
	if got != -2.5 {
		t.Fatalf("ToFloat64(-2.5) = %v, want -2.5", got)
	}
}

func TestFloatDivOneThirdFiftySignificantDigits(t *testing.T) {
	got := ParseFloat("1.0").Div(ParseFloat("3.0"))
	if len(got.ip) != 1 || got.ip[0] != 0 {
		t.Fatalf("1/3 integer part = %v, want 0", got.ip)
	}
	if len(got.frac) != MaxSignificantFracDigits {
		t.Fatalf("1/3 has %d fractional digits, want %d", len(got.frac), MaxSignificantFracDigits)
	}
	for i, d := range got.frac {
		if d != 3 {
			t.Fatalf("fractional digit %d = %d, want 3", i, d)
		}
	}
	if got.frac[len(got.frac)-1] == 0 {
		t.Fatal("trailing-zero trim must leave the last digit non-zero")
	}
}

func TestFloatDivLeadingZerosDoNotCountAsSignificant(t *testing.T) {
	// 1/3000 = 0.000333...: the three leading zeros must not use up the significant digit budget.
	got := ParseFloat("1").Div(ParseFloat("3000"))
	nonZero := 0
	for _, d := range got.frac {
		if d != 0 {
			nonZero++
		}
	}
	if nonZero != MaxSignificantFracDigits {
		t.Fatalf("1/3000 produced %d significant digits, want %d", nonZero, MaxSignificantFracDigits)
	}
}

func TestFloatPow(t *testing.T) {
	if got := ParseFloat("2").Pow(ParseFloat("10")).String(); got != "1024" {
		t.Fatalf("2^10 = %s, want 1024", got)
	}
	if got := ParseFloat("-2").Pow(ParseFloat("3")).String(); got != "-8" {
		t.Fatalf("(-2)^3 = %s, want -8", got)
	}
	if got := ParseFloat("-2").Pow(ParseFloat("2")).String(); got != "4" {
		t.Fatalf("(-2)^2 = %s, want 4", got)
	}
	if got := ParseFloat("0").Pow(ParseFloat("0")).String(); got != "1" {
		t.Fatalf("0^0 = %s, want 1", got)
	}
	if got := ParseFloat("1.5").Pow(ParseFloat("2")).String(); got != "2.25" {
		t.Fatalf("1.5^2 = %s, want 2.25", got)
	}
}

func TestFloatPowNonIntegerExponentPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on non-integer exponent")
		}
	}()
	ParseFloat("2").Pow(ParseFloat("0.5"))
}

func TestFloatToAPInt(t *testing.T) {
	if got := ParseFloat("3.99").ToAPInt().String(); got != "3" {
		t.Fatalf("trunc(3.99) = %s, want 3", got)
	}
	if got := ParseFloat("-3.99").ToAPInt().String(); got != "-3" {
		t.Fatalf("trunc(-3.99) = %s, want -3", got)
	}
}
