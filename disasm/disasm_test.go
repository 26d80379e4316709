package disasm

import (
	"strings"
	"testing"
)

func TestDisassembleKnownBytes(t *testing.T) {
	// xor %edi,%edi ; ret ; nop
	code := []byte{0x31, 0xff, 0xc3, 0x90}
	out := Disassemble(code, 0x401000)

	if len(out) != 3 {
		t.Fatalf("decoded %d instructions, want 3", len(out))
	}
	if out[0].Address != 0x401000 || !strings.Contains(out[0].Text, "xor") {
		t.Errorf("insn 0 = %+v", out[0])
	}
	if out[1].Address != 0x401002 || !strings.Contains(out[1].Text, "ret") {
		t.Errorf("insn 1 = %+v", out[1])
	}
	if out[2].Address != 0x401003 || !strings.Contains(out[2].Text, "nop") {
		t.Errorf("insn 2 = %+v", out[2])
	}
}

func TestDisassembleAddressesAdvanceByLength(t *testing.T) {
	// mov $0x1,%eax ; syscall
	code := []byte{0xb8, 0x01, 0x00, 0x00, 0x00, 0x0f, 0x05}
	out := Disassemble(code, 0x1000)

	pc := uint64(0x1000)
	for _, in := range out {
		if in.Address != pc {
			t.Fatalf("address %#x, want %#x", in.Address, pc)
		}
		pc += uint64(in.Len)
	}
	if pc != 0x1000+uint64(len(code)) {
		t.Errorf("decode consumed %d bytes, want %d", pc-0x1000, len(code))
	}
}

func TestDisassembleBadByteResynchronizes(t *testing.T) {
	// 0x0f starts a two-byte opcode that needs more bytes than the
	// buffer has; the ret after it still must decode.
	code := []byte{0x0f, 0xc3}
	out := Disassemble(code, 0)
	if len(out) != 2 {
		t.Fatalf("decoded %d entries, want 2: %+v", len(out), out)
	}
	if out[0].Text != "(bad)" {
		t.Errorf("insn 0 = %+v, want (bad)", out[0])
	}
	if !strings.Contains(out[1].Text, "ret") {
		t.Errorf("insn 1 = %+v, want ret", out[1])
	}
}
