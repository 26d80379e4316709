package sdb

import "fmt"

// VAddr is an address inside the virtual address space of a traced
// process (i.e. already relocated by the process's load bias).
type VAddr uint64

// FAddr is an address as it appears in an ELF file on disk, before any
// load bias is applied.
type FAddr uint64

func (a VAddr) Add(off int64) VAddr { return VAddr(uint64(int64(a) + off)) }
func (a FAddr) Add(off int64) FAddr { return FAddr(uint64(int64(a) + off)) }

func (a VAddr) String() string { return fmt.Sprintf("0x%x", uint64(a)) }
func (a FAddr) String() string { return fmt.Sprintf("0x%x", uint64(a)) }

// ToVAddr converts a file address to a virtual address given the load
// bias of the ELF image it belongs to. Mixing addresses from different
// ELF images without going through their own bias is a programming
// error, so callers are expected to track which Elf a FAddr came from.
func (a FAddr) ToVAddr(bias int64) VAddr { return VAddr(uint64(int64(a) + bias)) }

// ToFAddr is the inverse of ToVAddr for the same bias.
func (a VAddr) ToFAddr(bias int64) FAddr { return FAddr(uint64(int64(a) - bias)) }

// Byte64 and Byte128 hold raw register contents wider than a machine
// word (MMX/SSE registers), stored least-significant-byte first.
type Byte64 [8]byte
type Byte128 [16]byte

// StoppointMode selects what a hardware stoppoint traps on, mirroring
// the x86 debug-register DR7 condition field encoding.
type StoppointMode uint8

const (
	ModeExecute   StoppointMode = 0b00
	ModeWrite     StoppointMode = 0b01
	ModeReadWrite StoppointMode = 0b11
)

func (m StoppointMode) String() string {
	switch m {
	case ModeExecute:
		return "execute"
	case ModeWrite:
		return "write"
	case ModeReadWrite:
		return "read_write"
	default:
		return "unknown"
	}
}
