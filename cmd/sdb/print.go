package main

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"sdb"
)

const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorPurple = "\033[35m"
	ColorCyan   = "\033[36m"
	ColorWhite  = "\033[37m"
	ColorBold   = "\033[1m"
)

func LogError(msg string, a ...interface{}) {
	fmt.Printf("%s[ERROR]%s %s\n", ColorRed, ColorReset, fmt.Sprintf(msg, a...))
}

func Printf(msg string, a ...interface{}) {
	msg = strings.ReplaceAll(msg, "%d", "\033[36m%d\033[0m")
	msg = strings.ReplaceAll(msg, "0x%016x", "\033[36m0x%016x\033[0m")
	msg = strings.ReplaceAll(msg, "%016x", "\033[36m%016x\033[0m")
	msg = strings.ReplaceAll(msg, "%x", "\033[36m%x\033[0m")
	msg = strings.ReplaceAll(msg, "%s", "\033[32m%s\033[0m")

	fmt.Printf(msg, a...)
}

func hLine(msg string) {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		w, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err == nil && w > 0 {
			fmt.Printf(strings.Repeat("-", (w-len(msg)-2)/2) + "[" + msg + "]" + strings.Repeat("-", (w-len(msg)-2)/2) + "\n")
			return
		}
	}
	fmt.Printf("[" + msg + "]\n")
}

// formatRegisterValue renders a register read the way the value is
// typed: integers in hex, floats as decimals, vectors as byte lists.
func formatRegisterValue(v sdb.RegisterValue) string {
	switch x := v.(type) {
	case uint16:
		return fmt.Sprintf("0x%04x", x)
	case uint32:
		return fmt.Sprintf("0x%08x", x)
	case uint64:
		return fmt.Sprintf("0x%016x", x)
	case float64:
		return fmt.Sprintf("%g", x)
	case sdb.Byte64:
		return formatByteVector(x[:])
	case sdb.Byte128:
		return formatByteVector(x[:])
	default:
		return fmt.Sprintf("%v", x)
	}
}

func formatByteVector(b []byte) string {
	parts := make([]string, len(b))
	for i, x := range b {
		parts[i] = fmt.Sprintf("0x%02x", x)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// printStopReason narrates a WaitOnSignal result: state transition,
// stop signal, trap classification and syscall detail when present.
func (s *session) printStopReason(reason sdb.StopReason) {
	proc := s.target.Process()
	switch reason.Reason {
	case sdb.StateExited:
		Printf("PID:%d exited with status %d\n", proc.PID(), int(reason.Info))
		return
	case sdb.StateTerminated:
		Printf("PID:%d terminated by signal %s\n", proc.PID(), syscall.Signal(reason.Info).String())
		return
	}

	pc, _ := proc.GetPC()
	sig := syscall.Signal(reason.Info &^ 0x80)
	Printf("stopped with %s at 0x%016x", sig.String(), uint64(pc))
	if sym, ok := s.target.SymbolAt(pc); ok {
		Printf(" <%s>", sym.DisplayName())
	}
	fmt.Println()

	if reason.TrapReason != nil {
		s.printTrapDetail(reason)
	}
}

func (s *session) printTrapDetail(reason sdb.StopReason) {
	proc := s.target.Process()
	switch *reason.TrapReason {
	case sdb.TrapSoftwareBreak:
		pc, _ := proc.GetPC()
		if site, ok := proc.BreakpointSites().GetByAddress(pc); ok {
			Printf("hit breakpoint %d @ %x\n", int(site.ID()), uint64(site.Address()))
		}
	case sdb.TrapHardwareBreak:
		id, isWatch, err := proc.GetCurrentHardwareStoppoint()
		if err != nil {
			return
		}
		if !isWatch {
			Printf("hit hardware breakpoint %d\n", int(id))
			return
		}
		if wp, ok := proc.Watchpoints().GetByID(id); ok {
			Printf("hit watchpoint %d @ %x\n", int(id), uint64(wp.Address()))
			if wp.CurrentValue() != wp.PreviousValue() {
				Printf("value: 0x%016x -> 0x%016x\n", wp.PreviousValue(), wp.CurrentValue())
			} else {
				Printf("value: 0x%016x\n", wp.CurrentValue())
			}
		}
	case sdb.TrapSingleStep:
		// Quiet: stepping announces itself by the new pc alone.
	case sdb.TrapSyscall:
		if info := reason.SyscallInfo; info != nil {
			name := sdb.SyscallIDToName(info.ID)
			if name == "" {
				name = fmt.Sprintf("syscall_%d", info.ID)
			}
			if info.Entry {
				args := make([]string, len(info.Args))
				for i, a := range info.Args {
					args[i] = fmt.Sprintf("0x%x", uint64(a))
				}
				Printf("syscall entry: %s(%s)\n", name, strings.Join(args, ","))
			} else {
				Printf("syscall exit: %s = 0x%x\n", name, uint64(info.Ret))
			}
		}
	}
}

// printRegisters dumps either the general-purpose bank or the whole
// table, the fp/vector and debug rows included. The 32-bit
// sub-registers are never listed.
func (s *session) printRegisters(all bool) {
	regs := s.target.Process().Registers()
	hLine("registers")
	for _, info := range sdb.AllRegisters() {
		switch info.Type {
		case sdb.TypeSubGPR:
			continue
		case sdb.TypeFPR, sdb.TypeDebug:
			if !all {
				continue
			}
		}
		Printf("%-8s %s\n", info.Name, formatRegisterValue(regs.Read(info)))
	}
}

// hexDump prints memory read results 16 bytes per row with an ASCII
// gutter.
func hexDump(base sdb.VAddr, data []byte) {
	for off := 0; off < len(data); off += 16 {
		end := off + 16
		if end > len(data) {
			end = len(data)
		}
		row := data[off:end]

		var hexCol, ascCol strings.Builder
		for i, b := range row {
			if i == 8 {
				hexCol.WriteByte(' ')
			}
			fmt.Fprintf(&hexCol, "%02x ", b)
			if b >= 0x20 && b < 0x7f {
				ascCol.WriteByte(b)
			} else {
				ascCol.WriteByte('.')
			}
		}
		Printf("0x%016x: %-49s |%s|\n", uint64(base)+uint64(off), hexCol.String(), ascCol.String())
	}
}
