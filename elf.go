package sdb

import (
	"bytes"
	"debug/elf"
	"sort"

	"golang.org/x/sys/unix"
)

// Sym is one symbol table entry with both its raw and, when the name
// was Itanium-mangled, its demangled spelling.
type Sym struct {
	Name      string
	Demangled string
	Value     FAddr
	Size      uint64
	Type      elf.SymType
}

// DisplayName prefers the demangled spelling when one exists.
func (s *Sym) DisplayName() string {
	if s.Demangled != "" {
		return s.Demangled
	}
	return s.Name
}

type symRange struct {
	lo, hi FAddr
	sym    *Sym
}

// Elf is a read-only view over one memory-mapped ELF64 image plus the
// load bias its runtime instance was given. The mapping stays valid for
// the life of the view; section contents are served straight out of it.
type Elf struct {
	path    string
	data    []byte
	file    *elf.File
	bias    int64
	biasSet bool

	symbols    []*Sym
	symsByName map[string][]*Sym
	symsByAddr []symRange // sorted by (lo, hi)
}

// OpenElf maps path read-only and parses its header, section table and
// symbol tables. Any open/stat/map/parse failure is fatal for the view;
// no partial object is returned.
func OpenElf(path string) (*Elf, error) {
	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		return nil, newErr(KindElfError, "elf.open", err)
	}
	defer unix.Close(fd)

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, newErr(KindElfError, "elf.stat", err)
	}

	data, err := unix.Mmap(fd, 0, int(st.Size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, newErr(KindElfError, "elf.mmap", err)
	}

	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		unix.Munmap(data)
		return nil, newErr(KindElfError, "elf.parse", err)
	}
	if f.Class != elf.ELFCLASS64 {
		unix.Munmap(data)
		return nil, newErr(KindElfError, "elf.parse", nil)
	}

	e := &Elf{
		path:       path,
		data:       data,
		file:       f,
		symsByName: make(map[string][]*Sym),
	}
	e.parseSymbols()
	return e, nil
}

// Close unmaps the file. The view is unusable afterwards.
func (e *Elf) Close() {
	if e.data != nil {
		unix.Munmap(e.data)
		e.data = nil
	}
}

func (e *Elf) Path() string     { return e.path }
func (e *Elf) Entry() FAddr     { return FAddr(e.file.Entry) }
func (e *Elf) LoadBias() int64  { return e.bias }
func (e *Elf) Symbols() []*Sym  { return e.symbols }

// NotifyLoaded records the load bias once the runtime location of the
// image is known. The bias is frozen: later calls are ignored.
func (e *Elf) NotifyLoaded(bias int64) {
	if e.biasSet {
		return
	}
	e.bias = bias
	e.biasSet = true
}

// parseSymbols reads .symtab, falling back to .dynsym for stripped
// binaries, indexing every symbol by both its mangled and demangled
// name and building the address-range index used by
// SymbolContainingFAddr.
func (e *Elf) parseSymbols() {
	syms, err := e.file.Symbols()
	if err != nil {
		syms, err = e.file.DynamicSymbols()
		if err != nil {
			return
		}
	}

	for i := range syms {
		raw := syms[i]
		if raw.Name == "" && raw.Value == 0 {
			continue
		}
		s := &Sym{
			Name:  raw.Name,
			Value: FAddr(raw.Value),
			Size:  raw.Size,
			Type:  elf.ST_TYPE(raw.Info),
		}
		if dem, ok := demangleName(raw.Name); ok {
			s.Demangled = dem
		}

		e.symbols = append(e.symbols, s)
		e.symsByName[s.Name] = append(e.symsByName[s.Name], s)
		if s.Demangled != "" && s.Demangled != s.Name {
			e.symsByName[s.Demangled] = append(e.symsByName[s.Demangled], s)
		}
		if raw.Value != 0 && raw.Name != "" && s.Type != elf.STT_TLS {
			e.symsByAddr = append(e.symsByAddr, symRange{
				lo:  FAddr(raw.Value),
				hi:  FAddr(raw.Value + raw.Size),
				sym: s,
			})
		}
	}

	sort.Slice(e.symsByAddr, func(i, j int) bool {
		if e.symsByAddr[i].lo != e.symsByAddr[j].lo {
			return e.symsByAddr[i].lo < e.symsByAddr[j].lo
		}
		return e.symsByAddr[i].hi < e.symsByAddr[j].hi
	})
}

// GetSection looks a section up by name.
func (e *Elf) GetSection(name string) (*elf.Section, bool) {
	s := e.file.Section(name)
	return s, s != nil
}

// SectionContents returns a section's bytes as a span over the mapped
// file. NOBITS sections have no file contents.
func (e *Elf) SectionContents(name string) ([]byte, bool) {
	s := e.file.Section(name)
	if s == nil || s.Type == elf.SHT_NOBITS {
		return nil, false
	}
	if s.Offset+s.FileSize > uint64(len(e.data)) {
		return nil, false
	}
	return e.data[s.Offset : s.Offset+s.FileSize], true
}

// GetSectionStartAddress gives the file address a named section is
// linked at, when it is allocated in memory at all.
func (e *Elf) GetSectionStartAddress(name string) (FAddr, bool) {
	s := e.file.Section(name)
	if s == nil || s.Flags&elf.SHF_ALLOC == 0 {
		return 0, false
	}
	return FAddr(s.Addr), true
}

// GetSectionContainingFAddr scans for the allocated section whose
// [sh_addr, sh_addr+sh_size) covers the file address.
func (e *Elf) GetSectionContainingFAddr(f FAddr) (*elf.Section, bool) {
	for _, s := range e.file.Sections {
		if s.Flags&elf.SHF_ALLOC == 0 {
			continue
		}
		if uint64(f) >= s.Addr && uint64(f) < s.Addr+s.Size {
			return s, true
		}
	}
	return nil, false
}

// GetSectionContainingVAddr is the runtime-address variant of
// GetSectionContainingFAddr: the same test shifted by the load bias.
func (e *Elf) GetSectionContainingVAddr(v VAddr) (*elf.Section, bool) {
	return e.GetSectionContainingFAddr(FAddr(uint64(int64(v) - e.bias)))
}

// ToVAddr relocates a file address into the running process, valid
// only for addresses some section covers.
func (e *Elf) ToVAddr(f FAddr) (VAddr, bool) {
	if _, ok := e.GetSectionContainingFAddr(f); !ok {
		return 0, false
	}
	return VAddr(uint64(int64(f) + e.bias)), true
}

// ToFAddr is the inverse of ToVAddr.
func (e *Elf) ToFAddr(v VAddr) (FAddr, bool) {
	f := FAddr(uint64(int64(v) - e.bias))
	if _, ok := e.GetSectionContainingFAddr(f); !ok {
		return 0, false
	}
	return f, true
}

// GetSymbolsByName returns every symbol inserted under name, which may
// be a mangled or demangled spelling.
func (e *Elf) GetSymbolsByName(name string) []*Sym {
	return e.symsByName[name]
}

// SymbolContainingFAddr finds the symbol whose [value, value+size)
// range covers f: binary-search for the first range at or after f, and
// if none starts exactly there, step back one and accept it only when
// it strictly contains f.
func (e *Elf) SymbolContainingFAddr(f FAddr) (*Sym, bool) {
	i := sort.Search(len(e.symsByAddr), func(i int) bool {
		return e.symsByAddr[i].lo >= f
	})
	if i < len(e.symsByAddr) && e.symsByAddr[i].lo == f {
		return e.symsByAddr[i].sym, true
	}
	if i == 0 {
		return nil, false
	}
	prev := e.symsByAddr[i-1]
	if prev.lo < f && f < prev.hi {
		return prev.sym, true
	}
	return nil, false
}

// SymbolContainingVAddr resolves a runtime address through the load
// bias first.
func (e *Elf) SymbolContainingVAddr(v VAddr) (*Sym, bool) {
	return e.SymbolContainingFAddr(FAddr(uint64(int64(v) - e.bias)))
}
