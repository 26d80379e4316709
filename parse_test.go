package sdb

import "testing"

func TestParseVAddr(t *testing.T) {
	for text, want := range map[string]VAddr{
		"0xdeadbeef": 0xdeadbeef,
		"deadbeef":   0xdeadbeef,
		"0x0":        0,
	} {
		got, err := ParseVAddr(text)
		if err != nil || got != want {
			t.Errorf("ParseVAddr(%q) = %s, %v", text, got, err)
		}
	}
	if _, err := ParseVAddr("zzz"); !IsKind(err, KindInvalidFormat) {
		t.Errorf("bad address = %v, want InvalidFormat", err)
	}
}

func TestParseRegisterValueUint(t *testing.T) {
	rsi, _ := registerInfoByName("rsi")
	v, err := ParseRegisterValue(rsi, "0xcafecafe")
	if err != nil || v.(uint64) != 0xcafecafe {
		t.Errorf("parse = %#x, %v", v, err)
	}
	// Hex digits without a prefix are still hex.
	v, err = ParseRegisterValue(rsi, "ff")
	if err != nil || v.(uint64) != 0xff {
		t.Errorf("parse = %#x, %v", v, err)
	}
}

func TestParseRegisterValueFloat(t *testing.T) {
	st0, _ := registerInfoByName("st0")
	v, err := ParseRegisterValue(st0, "42.24")
	if err != nil || v.(float64) != 42.24 {
		t.Errorf("parse st0 = %v, %v", v, err)
	}
	xmm0, _ := registerInfoByName("xmm0")
	v, err = ParseRegisterValue(xmm0, "42.24")
	if err != nil || v.(float64) != 42.24 {
		t.Errorf("parse xmm0 = %v, %v", v, err)
	}
}

func TestParseRegisterValueVector(t *testing.T) {
	mm0, _ := registerInfoByName("mm0")
	v, err := ParseRegisterValue(mm0, "[0x11,0xba,0x5e,0xba,0x00,0x00,0x00,0x00]")
	if err != nil {
		t.Fatal(err)
	}
	b := v.(Byte64)
	if b[0] != 0x11 || b[3] != 0xba {
		t.Errorf("vector = %v", b)
	}

	// Width mismatch must be rejected.
	if _, err := ParseRegisterValue(mm0, "[0x11,0xba]"); !IsKind(err, KindInvalidFormat) {
		t.Errorf("short vector = %v, want InvalidFormat", err)
	}
}

func TestParseByteVector(t *testing.T) {
	b, err := ParseByteVector("[0xde,0xad, 0xbe ,0xef]")
	if err != nil || len(b) != 4 || b[0] != 0xde || b[3] != 0xef {
		t.Errorf("ParseByteVector = %v, %v", b, err)
	}
	for _, bad := range []string{"", "[]", "0xde,0xad", "[0xzz]"} {
		if _, err := ParseByteVector(bad); err == nil {
			t.Errorf("ParseByteVector(%q) accepted", bad)
		}
	}
}
