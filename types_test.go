package sdb

import "testing"

func TestVAddrArithmetic(t *testing.T) {
	a := VAddr(0x1000)
	if got := a.Add(0x20); got != VAddr(0x1020) {
		t.Errorf("Add(0x20) = %s", got)
	}
	if got := a.Add(-0x10); got != VAddr(0xff0) {
		t.Errorf("Add(-0x10) = %s", got)
	}
	if a.String() != "0x1000" {
		t.Errorf("String() = %q", a.String())
	}
}

func TestAddrConversionRoundTrip(t *testing.T) {
	const bias = int64(0x555500000000)
	f := FAddr(0x4010)
	v := f.ToVAddr(bias)
	if v != VAddr(0x555500004010) {
		t.Fatalf("ToVAddr = %s", v)
	}
	if back := v.ToFAddr(bias); back != f {
		t.Errorf("round trip = %s, want %s", back, f)
	}
}

func TestStoppointModeString(t *testing.T) {
	cases := map[StoppointMode]string{
		ModeExecute:   "execute",
		ModeWrite:     "write",
		ModeReadWrite: "read_write",
	}
	for mode, want := range cases {
		if got := mode.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", mode, got, want)
		}
	}
}
