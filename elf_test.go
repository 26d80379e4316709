package sdb

import (
	"debug/elf"
	"testing"
)

// The running test binary is as good an ELF64 image as any.
func openSelf(t *testing.T) *Elf {
	t.Helper()
	e, err := OpenElf("/proc/self/exe")
	if err != nil {
		t.Fatalf("OpenElf: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestOpenElfMissingFile(t *testing.T) {
	if _, err := OpenElf("/no/such/elf"); !IsKind(err, KindElfError) {
		t.Errorf("OpenElf = %v, want ElfError", err)
	}
}

func TestElfSections(t *testing.T) {
	e := openSelf(t)

	text, ok := e.GetSection(".text")
	if !ok {
		t.Fatal(".text missing")
	}
	contents, ok := e.SectionContents(".text")
	if !ok || len(contents) == 0 {
		t.Fatal(".text contents empty")
	}
	if uint64(len(contents)) != text.FileSize {
		t.Errorf("contents %d bytes, section says %d", len(contents), text.FileSize)
	}

	start, ok := e.GetSectionStartAddress(".text")
	if !ok || start == 0 {
		t.Fatalf("start address = %s, %v", start, ok)
	}
	sect, ok := e.GetSectionContainingFAddr(start)
	if !ok || sect.Name != ".text" {
		t.Errorf("section containing .text start = %v", sect)
	}
}

func TestElfAddressTranslation(t *testing.T) {
	e := openSelf(t)
	const bias = 0x7f0000000000
	e.NotifyLoaded(bias)
	if e.LoadBias() != bias {
		t.Fatalf("bias = %#x", e.LoadBias())
	}
	// Frozen after the first call.
	e.NotifyLoaded(123)
	if e.LoadBias() != bias {
		t.Error("bias changed after second NotifyLoaded")
	}

	start, _ := e.GetSectionStartAddress(".text")
	v, ok := e.ToVAddr(start)
	if !ok || v != VAddr(uint64(start)+bias) {
		t.Fatalf("ToVAddr = %s, %v", v, ok)
	}
	back, ok := e.ToFAddr(v)
	if !ok || back != start {
		t.Errorf("round trip = %s, want %s", back, start)
	}

	// An address no section covers must not translate.
	if _, ok := e.ToVAddr(FAddr(1)); ok {
		t.Error("translated an uncovered file address")
	}
}

func TestElfSymbols(t *testing.T) {
	e := openSelf(t)
	if len(e.Symbols()) == 0 {
		t.Skip("test binary has no symbol table")
	}

	var fn *Sym
	for _, s := range e.Symbols() {
		if s.Type == elf.STT_FUNC && s.Size > 0 && s.Value != 0 {
			fn = s
			break
		}
	}
	if fn == nil {
		t.Skip("no sized function symbols")
	}

	byName := e.GetSymbolsByName(fn.Name)
	if len(byName) == 0 {
		t.Errorf("symbol %q not indexed by name", fn.Name)
	}

	if got, ok := e.SymbolContainingFAddr(fn.Value); !ok || got.Value != fn.Value {
		t.Errorf("SymbolContainingFAddr(start) = %+v, %v", got, ok)
	}
	mid := FAddr(uint64(fn.Value) + fn.Size/2)
	if fn.Size > 1 {
		if got, ok := e.SymbolContainingFAddr(mid); !ok || got.Value != fn.Value {
			t.Errorf("SymbolContainingFAddr(mid) = %+v, %v", got, ok)
		}
	}
	if _, ok := e.SymbolContainingFAddr(FAddr(uint64(fn.Value) + fn.Size + 1)); ok {
		// The next symbol may legitimately start there; only fail when
		// the lookup returned the one we know ends before it.
		got, _ := e.SymbolContainingFAddr(FAddr(uint64(fn.Value) + fn.Size + 1))
		if got != nil && got.Value == fn.Value {
			t.Error("symbol claimed an address past its end")
		}
	}
}
