package sdb

// BreakpointSite is one location a Process should trap at. It is
// either a software breakpoint (the original instruction byte is
// swapped for 0xCC / INT3) or a hardware execution breakpoint (a debug
// register watches the address with mode=execute, size=1 — the only
// mode/size combination execution stoppoints ever use, see Process
// hardware arbitration). Internal sites are those created with
// internal=true; they get id -1 and are hidden from user-facing
// listings. Stepping over a breakpoint disables and re-enables the
// site itself rather than creating an internal one.
type BreakpointSite struct {
	id         int64
	proc       *Process
	addr       VAddr
	isHardware bool
	isInternal bool
	enabled    bool
	origByte   byte
	hwIndex    int
}

func (b *BreakpointSite) ID() int64       { return b.id }
func (b *BreakpointSite) Address() VAddr  { return b.addr }
func (b *BreakpointSite) InRange(a VAddr) bool { return a == b.addr }
func (b *BreakpointSite) IsEnabled() bool { return b.enabled }
func (b *BreakpointSite) IsHardware() bool { return b.isHardware }
func (b *BreakpointSite) IsInternal() bool { return b.isInternal }

func (b *BreakpointSite) Enable() error {
	if b.enabled {
		return nil
	}
	if b.isHardware {
		idx, err := b.proc.setHardwareStoppoint(b.addr, ModeExecute, 1)
		if err != nil {
			return err
		}
		b.hwIndex = idx
		b.enabled = true
		return nil
	}

	data, err := b.proc.readMemoryRaw(b.addr, 1)
	if err != nil {
		return err
	}
	b.origByte = data[0]
	if err := b.proc.writeMemoryRaw(b.addr, []byte{0xCC}); err != nil {
		return err
	}
	b.enabled = true
	return nil
}

func (b *BreakpointSite) Disable() error {
	if !b.enabled {
		return nil
	}
	if b.isHardware {
		b.proc.clearHardwareStoppoint(b.hwIndex)
		b.enabled = false
		return nil
	}
	if err := b.proc.writeMemoryRaw(b.addr, []byte{b.origByte}); err != nil {
		return err
	}
	b.enabled = false
	return nil
}
