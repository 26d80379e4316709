package sdb

import (
	"os"
	"strconv"

	"sdb/disasm"
)

// AT_ENTRY in the auxiliary vector: the entry point address the kernel
// actually loaded the executable at, bias included.
const auxvATEntry = 9

// maxInstructionLen is the architectural x86-64 instruction size limit,
// used to bound how many bytes a count-driven disassembly must fetch.
const maxInstructionLen = 15

// Target binds one traced Process to the Elf view of its executable.
// It is the surface an interactive frontend drives: everything that
// needs both runtime state and on-disk metadata (load bias resolution,
// symbol lookup by runtime address, disassembly) lives here.
type Target struct {
	proc *Process
	elf  *Elf
}

// LaunchTarget starts path under trace and binds it to its ELF view.
// stdoutReplacementFD, when >= 0, becomes the inferior's fd 1.
func LaunchTarget(path string, stdoutReplacementFD int, args ...string) (*Target, error) {
	e, err := OpenElf(path)
	if err != nil {
		return nil, err
	}
	proc, err := LaunchProcess(path, true, stdoutReplacementFD, args...)
	if err != nil {
		e.Close()
		return nil, err
	}
	t := &Target{proc: proc, elf: e}
	t.resolveLoadBias()
	return t, nil
}

// AttachTarget joins a running process, locating its executable via
// /proc/<pid>/exe.
func AttachTarget(pid int) (*Target, error) {
	path, err := os.Readlink("/proc/" + strconv.Itoa(pid) + "/exe")
	if err != nil {
		return nil, newErr(KindAttachFailed, "target.attach", err)
	}
	proc, err := AttachProcess(pid)
	if err != nil {
		return nil, err
	}
	e, err := OpenElf(path)
	if err != nil {
		proc.Close()
		return nil, err
	}
	t := &Target{proc: proc, elf: e}
	t.resolveLoadBias()
	return t, nil
}

// resolveLoadBias reads AT_ENTRY from the inferior's auxiliary vector
// and publishes entry_runtime - entry_file to the ELF view. For a
// non-PIE executable the two coincide and the bias is zero.
func (t *Target) resolveLoadBias() {
	aux, err := t.proc.GetAuxVector()
	if err != nil {
		return
	}
	if entry, ok := aux[auxvATEntry]; ok {
		t.elf.NotifyLoaded(int64(entry) - int64(t.elf.Entry()))
	}
}

func (t *Target) Process() *Process { return t.proc }
func (t *Target) Elf() *Elf         { return t.elf }

// Close tears down the process first, then unmaps the ELF view.
func (t *Target) Close() {
	t.proc.Close()
	t.elf.Close()
}

// EntryPoint is the runtime virtual address execution starts at.
func (t *Target) EntryPoint() VAddr {
	if v, ok := t.elf.ToVAddr(t.elf.Entry()); ok {
		return v
	}
	return VAddr(uint64(int64(t.elf.Entry()) + t.elf.LoadBias()))
}

// FindSymbols resolves name against the symbol index, both mangled and
// demangled spellings.
func (t *Target) FindSymbols(name string) []*Sym {
	return t.elf.GetSymbolsByName(name)
}

// SymbolAt names the function or object covering a runtime address.
func (t *Target) SymbolAt(v VAddr) (*Sym, bool) {
	return t.elf.SymbolContainingVAddr(v)
}

// DisassembleAt decodes count instructions starting at addr (the
// current pc when addr is 0), reading through ReadMemoryWithoutTraps so
// enabled software breakpoints never corrupt the decode.
func (t *Target) DisassembleAt(addr VAddr, count int) ([]disasm.Instruction, error) {
	if addr == 0 {
		pc, err := t.proc.GetPC()
		if err != nil {
			return nil, err
		}
		addr = pc
	}
	code, err := t.proc.ReadMemoryWithoutTraps(addr, count*maxInstructionLen)
	if err != nil {
		return nil, err
	}
	out := disasm.Disassemble(code, uint64(addr))
	if len(out) > count {
		out = out[:count]
	}
	return out, nil
}
