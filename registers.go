package sdb

import (
	"encoding/binary"
	"math"
	"unsafe"

	"golang.org/x/sys/unix"
)

// RegisterValue is the set of Go types a register read can produce and
// a register write can accept, mirroring the original implementation's
// variant of integer widths, float widths and the two vector widths.
type RegisterValue any

// Registers is the single store of backing bytes for every register a
// RegisterInfo entry can name: general purpose, sub-registers (they
// alias their parent's bytes), x87/MMX/SSE, and debug registers. A
// Registers belongs to exactly one Process and is never copied or
// shared, matching the original implementation's non-copyable class.
type Registers struct {
	proc  *Process
	gpr   unix.PtraceRegs
	fpr   unix.PtraceFpRegs
	debug [8]uint64 // cache of dr0-dr3,dr6,dr7; authoritative copy lives in the kernel
}

func newRegisters(p *Process) *Registers {
	return &Registers{proc: p}
}

func (r *Registers) bytesFor(info RegisterInfo) []byte {
	switch info.Type {
	case TypeGPR, TypeSubGPR:
		base := (*byte)(unsafe.Pointer(&r.gpr))
		return unsafe.Slice(base, unsafe.Sizeof(r.gpr))[info.Offset:]
	case TypeFPR:
		base := (*byte)(unsafe.Pointer(&r.fpr))
		return unsafe.Slice(base, unsafe.Sizeof(r.fpr))[info.Offset:]
	case TypeDebug:
		idx := debugRegIndex(info.Offset)
		base := (*byte)(unsafe.Pointer(&r.debug[idx]))
		return unsafe.Slice(base, 8)
	default:
		return nil
	}
}

func debugRegIndex(offset uintptr) int {
	switch offset {
	case drDR0Offset:
		return 0
	case drDR1Offset:
		return 1
	case drDR2Offset:
		return 2
	case drDR3Offset:
		return 3
	case drDR6Offset:
		return 4
	case drDR7Offset:
		return 5
	default:
		return 0
	}
}

// Read returns the current value of the register described by info,
// reinterpreting its backing bytes per info.Format.
func (r *Registers) Read(info RegisterInfo) RegisterValue {
	b := r.bytesFor(info)
	switch info.Format {
	case FormatUint:
		switch info.Size {
		case 2:
			return binary.LittleEndian.Uint16(b)
		case 4:
			return binary.LittleEndian.Uint32(b)
		case 8:
			return binary.LittleEndian.Uint64(b)
		default:
			return uint64(b[0])
		}
	case FormatDoubleFloat:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	case FormatLongDouble:
		// x87 slots hold 80-bit extended values; Go has no float80, so
		// reads round to the nearest float64.
		mant := binary.LittleEndian.Uint64(b[:8])
		se := binary.LittleEndian.Uint16(b[8:10])
		return f80ToFloat64(mant, se)
	case FormatVector:
		if info.Size == 8 {
			var v Byte64
			copy(v[:], b[:8])
			return v
		}
		var v Byte128
		copy(v[:], b[:16])
		return v
	default:
		return nil
	}
}

// ReadByID reads a register by its RegisterID, returning an error if
// the id is unknown rather than panicking.
func (r *Registers) ReadByID(id RegisterID) (RegisterValue, error) {
	info, ok := registerInfoByID(id)
	if !ok {
		return nil, newErr(KindUnknownRegister, "registers.read", nil)
	}
	return r.Read(info), nil
}

// Write installs val into the register described by info, widening or
// zero/sign-extending it to info.Size the way the original
// implementation's `widen` helper does, then flushes the owning
// register bank (GPR via PTRACE_SETREGS, debug via PTRACE_POKEUSER,
// FPR via PTRACE_SETFPREGS) back to the tracee.
func (r *Registers) Write(info RegisterInfo, val RegisterValue) error {
	wide, err := widen(info, val)
	if err != nil {
		return err
	}
	dst := r.bytesFor(info)
	copy(dst, wide[:info.Size])

	if info.Type == TypeFPR {
		return r.proc.writeFPRegs(&r.fpr)
	}
	if info.Type == TypeDebug {
		idx := debugRegIndex(info.Offset)
		return r.proc.writeUserArea(info.Offset, r.debug[idx])
	}
	// GPR/sub-GPR: sub-registers alias their parent's bytes in r.gpr
	// already, so one PTRACE_SETREGS covers both.
	return r.proc.writeGPRegs(&r.gpr)
}

// WriteByID writes a register by its RegisterID.
func (r *Registers) WriteByID(id RegisterID, val RegisterValue) error {
	info, ok := registerInfoByID(id)
	if !ok {
		return newErr(KindUnknownRegister, "registers.write", nil)
	}
	return r.Write(info, val)
}

// ReadByName and WriteByName are the name-keyed entry points the CLI
// uses; ids are for code, names are for people.
func (r *Registers) ReadByName(name string) (RegisterValue, error) {
	info, ok := registerInfoByName(name)
	if !ok {
		return nil, newErr(KindUnknownRegister, "registers.read", nil)
	}
	return r.Read(info), nil
}

func (r *Registers) WriteByName(name string, val RegisterValue) error {
	info, ok := registerInfoByName(name)
	if !ok {
		return newErr(KindUnknownRegister, "registers.write", nil)
	}
	return r.Write(info, val)
}

func widen(info RegisterInfo, val RegisterValue) (Byte128, error) {
	var out Byte128
	switch v := val.(type) {
	case float32:
		return widen(info, float64(v))
	case float64:
		if info.Format == FormatLongDouble {
			mant, se := float64ToF80(v)
			binary.LittleEndian.PutUint64(out[:8], mant)
			binary.LittleEndian.PutUint16(out[8:10], se)
			return out, nil
		}
		if info.Format != FormatDoubleFloat && info.Format != FormatVector {
			return out, newErr(KindInvalidFormat, "registers.write", nil)
		}
		binary.LittleEndian.PutUint64(out[:8], math.Float64bits(v))
		return out, nil
	case int8:
		return widenSigned(info, int64(v))
	case int16:
		return widenSigned(info, int64(v))
	case int32:
		return widenSigned(info, int64(v))
	case int64:
		return widenSigned(info, v)
	case uint8:
		out[0] = v
		return out, nil
	case uint16:
		binary.LittleEndian.PutUint16(out[:2], v)
		return out, nil
	case uint32:
		binary.LittleEndian.PutUint32(out[:4], v)
		return out, nil
	case uint64:
		binary.LittleEndian.PutUint64(out[:8], v)
		return out, nil
	case Byte64:
		if info.Size < 8 {
			return out, newErr(KindInvalidFormat, "registers.write", nil)
		}
		copy(out[:8], v[:])
		return out, nil
	case Byte128:
		if info.Size < 16 {
			return out, newErr(KindInvalidFormat, "registers.write", nil)
		}
		return v, nil
	default:
		return out, newErr(KindInvalidFormat, "registers.write", nil)
	}
}

// float64ToF80 re-encodes an IEEE double as the x87 80-bit extended
// format: 64-bit mantissa with an explicit integer bit, then a 15-bit
// exponent (bias 16383) and the sign in the top bit of the second word.
func float64ToF80(f float64) (mant uint64, se uint16) {
	var sign uint16
	if math.Signbit(f) {
		sign = 0x8000
		f = -f
	}
	switch {
	case f == 0:
		return 0, sign
	case math.IsInf(f, 0):
		return 1 << 63, sign | 0x7fff
	case math.IsNaN(f):
		return 0xC000000000000000, sign | 0x7fff
	}
	m, e := math.Frexp(f) // f = m * 2^e, m in [0.5, 1)
	mant = uint64(m * (1 << 63) * 2)
	return mant, sign | uint16(e-1+16383)
}

func f80ToFloat64(mant uint64, se uint16) float64 {
	sign := 1.0
	if se&0x8000 != 0 {
		sign = -1.0
	}
	exp := int(se & 0x7fff)
	if exp == 0 && mant == 0 {
		return math.Copysign(0, sign)
	}
	if exp == 0x7fff {
		if mant<<1 == 0 {
			return math.Inf(int(sign))
		}
		return math.NaN()
	}
	return sign * math.Ldexp(float64(mant), exp-16383-63)
}

func widenSigned(info RegisterInfo, v int64) (Byte128, error) {
	var out Byte128
	if info.Format != FormatUint {
		binary.LittleEndian.PutUint64(out[:8], uint64(v))
		return out, nil
	}
	switch info.Size {
	case 2:
		binary.LittleEndian.PutUint16(out[:2], uint16(int16(v)))
	case 4:
		binary.LittleEndian.PutUint32(out[:4], uint32(int32(v)))
	default:
		binary.LittleEndian.PutUint64(out[:8], uint64(v))
	}
	return out, nil
}
