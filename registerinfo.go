package sdb

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// RegisterID names every register this debugger can read or write.
// Values are stable and used as map keys, never serialized.
type RegisterID int

const (
	R_rax RegisterID = iota
	R_rbx
	R_rcx
	R_rdx
	R_rdi
	R_rsi
	R_rbp
	R_rsp
	R_r8
	R_r9
	R_r10
	R_r11
	R_r12
	R_r13
	R_r14
	R_r15
	R_rip
	R_eflags
	R_cs
	R_fs
	R_gs
	R_ss
	R_ds
	R_es
	R_orig_rax
	R_fs_base
	R_gs_base

	// 32-bit sub-registers, widened on write and masked on read.
	R_eax
	R_ebx
	R_ecx
	R_edx
	R_edi
	R_esi
	R_ebp
	R_esp
	R_r8d
	R_r9d
	R_r10d
	R_r11d
	R_r12d
	R_r13d
	R_r14d
	R_r15d

	// debug registers, reached through PTRACE_PEEKUSER/POKEUSER.
	R_dr0
	R_dr1
	R_dr2
	R_dr3
	R_dr6
	R_dr7

	// x87/MMX/SSE, reached through PTRACE_GETFPREGS/SETFPREGS.
	R_fcw
	R_fsw
	R_mxcsr
	R_st0
	R_st1
	R_st2
	R_st3
	R_st4
	R_st5
	R_st6
	R_st7
	R_mm0
	R_mm1
	R_mm2
	R_mm3
	R_mm4
	R_mm5
	R_mm6
	R_mm7
	R_xmm0
	R_xmm1
	R_xmm2
	R_xmm3
	R_xmm4
	R_xmm5
	R_xmm6
	R_xmm7
	R_xmm8
	R_xmm9
	R_xmm10
	R_xmm11
	R_xmm12
	R_xmm13
	R_xmm14
	R_xmm15
)

// RegisterType says which underlying PTRACE request family a register
// is reached through.
type RegisterType int

const (
	TypeGPR RegisterType = iota
	TypeSubGPR
	TypeDebug
	TypeFPR
)

// RegisterFormat says how to interpret the raw bytes backing a register.
type RegisterFormat int

const (
	FormatUint RegisterFormat = iota
	FormatDoubleFloat
	FormatLongDouble
	FormatVector // Byte64 for MMX, Byte128 for XMM
)

// RegisterInfo is one row of the register description table, grounded
// in the x86-64 register_info table of the original implementation:
// name, dwarf id (where applicable), byte size, storage offset, and how
// to reinterpret the bytes at that offset.
type RegisterInfo struct {
	ID      RegisterID
	Name    string
	DwarfID int // -1 if none
	Size    int
	Offset  uintptr
	Type    RegisterType
	Format  RegisterFormat
}

const (
	drDR0Offset = 848
	drDR1Offset = 856
	drDR2Offset = 864
	drDR3Offset = 872
	drDR6Offset = 896
	drDR7Offset = 904
)

func gprOffset(field func(*unix.PtraceRegs) *uint64) uintptr {
	var r unix.PtraceRegs
	return uintptr(unsafe.Pointer(field(&r))) - uintptr(unsafe.Pointer(&r))
}

func fprOffset32(field func(*unix.PtraceFpRegs) *uint16) uintptr {
	var r unix.PtraceFpRegs
	return uintptr(unsafe.Pointer(field(&r))) - uintptr(unsafe.Pointer(&r))
}

// fprSpaceOffset returns the byte offset of x87 slot idx inside the
// fpregs block. St_space is declared as uint32 words but each st/mm
// slot occupies 16 bytes.
func fprSpaceOffset(idx int) uintptr {
	var r unix.PtraceFpRegs
	return uintptr(unsafe.Pointer(&r.St_space[0])) - uintptr(unsafe.Pointer(&r)) + uintptr(idx*16)
}

func fprOffsetU32(field func(*unix.PtraceFpRegs) *uint32) uintptr {
	var r unix.PtraceFpRegs
	return uintptr(unsafe.Pointer(field(&r))) - uintptr(unsafe.Pointer(&r))
}

// registerInfoTable is built once; register_info.hpp in the original
// implementation is generated by an X-macro list expanded at build
// time, this is its Go table-driven equivalent.
var registerInfoTable = buildRegisterInfoTable()

func buildRegisterInfoTable() []RegisterInfo {
	gpr := func(id RegisterID, name string, dwarf int, sz int, f func(*unix.PtraceRegs) *uint64) RegisterInfo {
		return RegisterInfo{ID: id, Name: name, DwarfID: dwarf, Size: sz, Offset: gprOffset(f), Type: TypeGPR, Format: FormatUint}
	}
	sub := func(id RegisterID, name string, parentOffset uintptr) RegisterInfo {
		return RegisterInfo{ID: id, Name: name, DwarfID: -1, Size: 4, Offset: parentOffset, Type: TypeSubGPR, Format: FormatUint}
	}
	dr := func(id RegisterID, name string, off uintptr) RegisterInfo {
		return RegisterInfo{ID: id, Name: name, DwarfID: -1, Size: 8, Offset: off, Type: TypeDebug, Format: FormatUint}
	}

	t := []RegisterInfo{
		gpr(R_r15, "r15", 15, 8, func(r *unix.PtraceRegs) *uint64 { return &r.R15 }),
		gpr(R_r14, "r14", 14, 8, func(r *unix.PtraceRegs) *uint64 { return &r.R14 }),
		gpr(R_r13, "r13", 13, 8, func(r *unix.PtraceRegs) *uint64 { return &r.R13 }),
		gpr(R_r12, "r12", 12, 8, func(r *unix.PtraceRegs) *uint64 { return &r.R12 }),
		gpr(R_rbp, "rbp", 6, 8, func(r *unix.PtraceRegs) *uint64 { return &r.Rbp }),
		gpr(R_rbx, "rbx", 3, 8, func(r *unix.PtraceRegs) *uint64 { return &r.Rbx }),
		gpr(R_r11, "r11", 11, 8, func(r *unix.PtraceRegs) *uint64 { return &r.R11 }),
		gpr(R_r10, "r10", 10, 8, func(r *unix.PtraceRegs) *uint64 { return &r.R10 }),
		gpr(R_r9, "r9", 9, 8, func(r *unix.PtraceRegs) *uint64 { return &r.R9 }),
		gpr(R_r8, "r8", 8, 8, func(r *unix.PtraceRegs) *uint64 { return &r.R8 }),
		gpr(R_rax, "rax", 0, 8, func(r *unix.PtraceRegs) *uint64 { return &r.Rax }),
		gpr(R_rcx, "rcx", 2, 8, func(r *unix.PtraceRegs) *uint64 { return &r.Rcx }),
		gpr(R_rdx, "rdx", 1, 8, func(r *unix.PtraceRegs) *uint64 { return &r.Rdx }),
		gpr(R_rsi, "rsi", 4, 8, func(r *unix.PtraceRegs) *uint64 { return &r.Rsi }),
		gpr(R_rdi, "rdi", 5, 8, func(r *unix.PtraceRegs) *uint64 { return &r.Rdi }),
		gpr(R_orig_rax, "orig_rax", -1, 8, func(r *unix.PtraceRegs) *uint64 { return &r.Orig_rax }),
		gpr(R_rip, "rip", 16, 8, func(r *unix.PtraceRegs) *uint64 { return &r.Rip }),
		gpr(R_cs, "cs", 51, 8, func(r *unix.PtraceRegs) *uint64 { return &r.Cs }),
		gpr(R_eflags, "eflags", 49, 8, func(r *unix.PtraceRegs) *uint64 { return &r.Eflags }),
		gpr(R_rsp, "rsp", 7, 8, func(r *unix.PtraceRegs) *uint64 { return &r.Rsp }),
		gpr(R_ss, "ss", 52, 8, func(r *unix.PtraceRegs) *uint64 { return &r.Ss }),
		gpr(R_fs_base, "fs_base", 58, 8, func(r *unix.PtraceRegs) *uint64 { return &r.Fs_base }),
		gpr(R_gs_base, "gs_base", 59, 8, func(r *unix.PtraceRegs) *uint64 { return &r.Gs_base }),
		gpr(R_ds, "ds", 53, 8, func(r *unix.PtraceRegs) *uint64 { return &r.Ds }),
		gpr(R_es, "es", 50, 8, func(r *unix.PtraceRegs) *uint64 { return &r.Es }),
		gpr(R_fs, "fs", 54, 8, func(r *unix.PtraceRegs) *uint64 { return &r.Fs }),
		gpr(R_gs, "gs", 55, 8, func(r *unix.PtraceRegs) *uint64 { return &r.Gs }),
	}

	subs := []struct {
		id     RegisterID
		name   string
		parent RegisterID
	}{
		{R_eax, "eax", R_rax}, {R_ebx, "ebx", R_rbx}, {R_ecx, "ecx", R_rcx}, {R_edx, "edx", R_rdx},
		{R_edi, "edi", R_rdi}, {R_esi, "esi", R_rsi}, {R_ebp, "ebp", R_rbp}, {R_esp, "esp", R_rsp},
		{R_r8d, "r8d", R_r8}, {R_r9d, "r9d", R_r9}, {R_r10d, "r10d", R_r10}, {R_r11d, "r11d", R_r11},
		{R_r12d, "r12d", R_r12}, {R_r13d, "r13d", R_r13}, {R_r14d, "r14d", R_r14}, {R_r15d, "r15d", R_r15},
	}
	byID := map[RegisterID]RegisterInfo{}
	for _, r := range t {
		byID[r.ID] = r
	}
	for _, s := range subs {
		t = append(t, sub(s.id, s.name, byID[s.parent].Offset))
	}

	t = append(t,
		dr(R_dr0, "dr0", drDR0Offset),
		dr(R_dr1, "dr1", drDR1Offset),
		dr(R_dr2, "dr2", drDR2Offset),
		dr(R_dr3, "dr3", drDR3Offset),
		dr(R_dr6, "dr6", drDR6Offset),
		dr(R_dr7, "dr7", drDR7Offset),
	)

	t = append(t,
		RegisterInfo{ID: R_fcw, Name: "fcw", DwarfID: -1, Size: 2, Offset: fprOffset32(func(r *unix.PtraceFpRegs) *uint16 { return &r.Cwd }), Type: TypeFPR, Format: FormatUint},
		RegisterInfo{ID: R_fsw, Name: "fsw", DwarfID: -1, Size: 2, Offset: fprOffset32(func(r *unix.PtraceFpRegs) *uint16 { return &r.Swd }), Type: TypeFPR, Format: FormatUint},
		RegisterInfo{ID: R_mxcsr, Name: "mxcsr", DwarfID: -1, Size: 4, Offset: fprOffsetU32(func(r *unix.PtraceFpRegs) *uint32 { return &r.Mxcsr }), Type: TypeFPR, Format: FormatUint},
	)

	for i := 0; i < 8; i++ {
		t = append(t, RegisterInfo{ID: R_st0 + RegisterID(i), Name: "st" + itoa(i), DwarfID: 33 + i, Size: 16, Offset: fprSpaceOffset(i), Type: TypeFPR, Format: FormatLongDouble})
	}
	// MMX registers alias the low 8 bytes of the x87 slots.
	for i := 0; i < 8; i++ {
		t = append(t, RegisterInfo{ID: R_mm0 + RegisterID(i), Name: "mm" + itoa(i), DwarfID: 41 + i, Size: 8, Offset: fprSpaceOffset(i), Type: TypeFPR, Format: FormatVector})
	}
	for i := 0; i < 16; i++ {
		t = append(t, RegisterInfo{ID: R_xmm0 + RegisterID(i), Name: "xmm" + itoa(i), DwarfID: 17 + i, Size: 16, Offset: xmmOffset(i), Type: TypeFPR, Format: FormatVector})
	}
	return t
}

func xmmOffset(i int) uintptr {
	var r unix.PtraceFpRegs
	base := uintptr(unsafe.Pointer(&r.Xmm_space[0])) - uintptr(unsafe.Pointer(&r))
	return base + uintptr(i*16)
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := "0123456789"
	var b []byte
	for i > 0 {
		b = append([]byte{digits[i%10]}, b...)
		i /= 10
	}
	return string(b)
}

// LookupRegister resolves a register by its user-facing name ("rip",
// "xmm3", ...), for callers translating command text into table rows.
func LookupRegister(name string) (RegisterInfo, bool) {
	return registerInfoByName(name)
}

// AllRegisters returns the full register description table in its
// canonical order (the kernel user-area layout order for GPRs).
func AllRegisters() []RegisterInfo {
	out := make([]RegisterInfo, len(registerInfoTable))
	copy(out, registerInfoTable)
	return out
}

func registerInfoByID(id RegisterID) (RegisterInfo, bool) {
	for _, r := range registerInfoTable {
		if r.ID == id {
			return r, true
		}
	}
	return RegisterInfo{}, false
}

func registerInfoByName(name string) (RegisterInfo, bool) {
	for _, r := range registerInfoTable {
		if r.Name == name {
			return r, true
		}
	}
	return RegisterInfo{}, false
}
