package sdb

// WatchpointSite is a hardware watchpoint: it always occupies one of
// the four x86-64 debug address registers and traps on write,
// read/write or execute access to a byte range, as its mode selects.
// A hardware BreakpointSite is the execute stop whose mode and size are
// fixed (execute, 1 byte).
type WatchpointSite struct {
	id      int64
	proc    *Process
	addr    VAddr
	mode    StoppointMode
	size    int
	enabled  bool
	hwIndex  int
	data     uint64 // last-observed value at addr
	prevData uint64 // value before the most recent refresh
}

func (w *WatchpointSite) ID() int64        { return w.id }
func (w *WatchpointSite) Address() VAddr   { return w.addr }
func (w *WatchpointSite) InRange(a VAddr) bool {
	return uint64(a) >= uint64(w.addr) && uint64(a) < uint64(w.addr)+uint64(w.size)
}
func (w *WatchpointSite) IsEnabled() bool { return w.enabled }
func (w *WatchpointSite) Mode() StoppointMode { return w.mode }
func (w *WatchpointSite) Size() int           { return w.size }

// CurrentValue and PreviousValue expose the watched bytes as observed at
// enable time and at every subsequent fire, so a caller can report what
// changed across the trapping access.
func (w *WatchpointSite) CurrentValue() uint64  { return w.data }
func (w *WatchpointSite) PreviousValue() uint64 { return w.prevData }

func (w *WatchpointSite) Enable() error {
	if w.enabled {
		return nil
	}
	idx, err := w.proc.setHardwareStoppoint(w.addr, w.mode, w.size)
	if err != nil {
		return err
	}
	w.hwIndex = idx
	w.enabled = true
	w.data, _ = w.proc.readWatchedValue(w)
	return nil
}

func (w *WatchpointSite) Disable() error {
	if !w.enabled {
		return nil
	}
	w.proc.clearHardwareStoppoint(w.hwIndex)
	w.enabled = false
	return nil
}

// UpdateData refreshes the cached value at the watched address, moving
// the old observation into PreviousValue, and reports whether the value
// changed. The controller calls this on every fire so old/new are
// accurate when the stop is reported.
func (w *WatchpointSite) UpdateData() (changed bool, err error) {
	newVal, err := w.proc.readWatchedValue(w)
	if err != nil {
		return false, err
	}
	changed = newVal != w.data
	w.prevData = w.data
	w.data = newVal
	return changed, nil
}
