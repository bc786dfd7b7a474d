package cliopts

import "testing"

func TestParseDefaults(t *testing.T) {
	opt, err := parse([]string{"prog.fl"})
	if err != nil {
		t.Fatal(err)
	}
	if opt.Src != "prog.fl" || opt.Out != "prog" {
		t.Fatalf("got Src=%q Out=%q", opt.Src, opt.Out)
	}
	if opt.Test || opt.EmitIR || opt.EmitLLVM {
		t.Fatal("mode flags should default to off")
	}
}

func TestParseFlags(t *testing.T) {
	opt, err := parse([]string{"--test", "--emit-ir", "--out", "build/x", "--threads", "4", "prog.fl"})
	if err != nil {
		t.Fatal(err)
	}
	if !opt.Test || !opt.EmitIR || opt.Out != "build/x" || opt.Threads != 4 {
		t.Fatalf("unexpected options: %+v", opt)
	}
}

func TestParseRejectsBadInput(t *testing.T) {
	cases := [][]string{
		{},
		{"--threads", "0", "prog.fl"},
		{"--threads", "nope", "prog.fl"},
		{"--out"},
		{"-x", "prog.fl"},
		{"a.fl", "b.fl"},
	}
	for _, c := range cases {
		if _, err := parse(c); err == nil {
			t.Errorf("parse(%v) should fail", c)
		}
	}
}
