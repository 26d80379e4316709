package sdb

import (
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ProcessState is the coarse lifecycle state of a tracee.
type ProcessState int

const (
	StateStopped ProcessState = iota
	StateRunning
	StateExited
	StateTerminated
)

// TrapType refines why a SIGTRAP stop happened, decoded from
// siginfo_t.si_code the way the original implementation's
// augment_stop_reason does.
type TrapType int

const (
	TrapSingleStep TrapType = iota
	TrapSoftwareBreak
	TrapHardwareBreak
	TrapSyscall
	TrapUnknown
)

// SyscallInfo describes a syscall-entry or syscall-exit stop, filled in
// when PTRACE_O_TRACESYSGOOD delivers SIGTRAP|0x80 instead of a plain
// SIGTRAP.
type SyscallInfo struct {
	ID    int
	Entry bool
	Args  [6]int64 // valid when Entry is true
	Ret   int64    // valid when Entry is false
}

// StopReason explains why WaitOnSignal/StepInstruction returned.
type StopReason struct {
	Reason      ProcessState
	Info        uint8 // exit code or terminating/stopping signal
	TrapReason  *TrapType
	SyscallInfo *SyscallInfo
}

func newStopReason(ws unix.WaitStatus) StopReason {
	switch {
	case ws.Exited():
		return StopReason{Reason: StateExited, Info: uint8(ws.ExitStatus())}
	case ws.Signaled():
		return StopReason{Reason: StateTerminated, Info: uint8(ws.Signal())}
	case ws.Stopped():
		return StopReason{Reason: StateStopped, Info: uint8(ws.StopSignal())}
	default:
		return StopReason{Reason: StateStopped}
	}
}

// SyscallCatchPolicy selects which syscalls a Process should report as
// catchpoint stops rather than silently passing through.
type SyscallCatchPolicy struct {
	mode    syscallCatchMode
	toCatch map[int]bool
}

type syscallCatchMode int

const (
	catchNone syscallCatchMode = iota
	catchSome
	catchAll
)

func CatchAllSyscalls() SyscallCatchPolicy  { return SyscallCatchPolicy{mode: catchAll} }
func CatchNoSyscalls() SyscallCatchPolicy   { return SyscallCatchPolicy{mode: catchNone} }
func CatchSomeSyscalls(ids []int) SyscallCatchPolicy {
	m := make(map[int]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return SyscallCatchPolicy{mode: catchSome, toCatch: m}
}

func (p SyscallCatchPolicy) catches(id int) bool {
	switch p.mode {
	case catchAll:
		return true
	case catchSome:
		return p.toCatch[id]
	default:
		return false
	}
}

// Process wraps a traced inferior and is the core surface every other
// component (Target, CLI) drives the tracee through. All ptrace calls
// for this Process run on the dedicated OS thread owned by worker.
type Process struct {
	pid               int
	terminateOnEnd    bool
	isAttached        bool
	state             ProcessState
	expectingSysExit  bool
	syscallPolicy     SyscallCatchPolicy
	registers         *Registers
	breakpointSites   StoppointCollection[*BreakpointSite]
	watchpoints       StoppointCollection[*WatchpointSite]
	worker            *ptraceWorker
	nextStoppointID   int64
	hwSlotUsed        [4]bool // DR0-DR3 occupancy, arbitrated by setHardwareStoppoint
	closed            bool
}

func (p *Process) PID() int                { return p.pid }
func (p *Process) State() ProcessState      { return p.state }
func (p *Process) Registers() *Registers    { return p.registers }
func (p *Process) BreakpointSites() *StoppointCollection[*BreakpointSite] {
	return &p.breakpointSites
}
func (p *Process) Watchpoints() *StoppointCollection[*WatchpointSite] {
	return &p.watchpoints
}

func (p *Process) nextID() int64 {
	return atomic.AddInt64(&p.nextStoppointID, 1)
}

// LaunchProcess starts path under ptrace and stops it immediately
// after exec (or, if debug is false, starts it untraced and lets it
// run free). stdoutReplacementFD, if >= 0, becomes
// the child's fd 1, mirroring the original implementation's
// stdout_replacement_fd parameter used to capture inferior output in
// tests.
func LaunchProcess(path string, debug bool, stdoutReplacementFD int, args ...string) (*Process, error) {
	absPath, err := resolveLaunchPath(path)
	if err != nil {
		return nil, newErr(KindLaunchFailed, "process.launch", err)
	}

	proc := &Process{
		pid:            -1,
		terminateOnEnd: true,
		isAttached:     debug,
		state:          StateStopped,
		syscallPolicy:  CatchNoSyscalls(),
		worker:         newPtraceWorker(),
	}
	proc.registers = newRegisters(proc)

	// os/exec runs its own close-on-exec pipe handshake between fork
	// and exec, so a pre-exec failure (bad path, ETXTBSY, trace-me
	// refused) surfaces here as a Start error instead of a child that
	// never reaches its first stop.
	err = runOnErr(proc.worker, func() error {
		cmd := exec.Command(absPath, args...)
		cmd.SysProcAttr = &unix.SysProcAttr{Ptrace: debug, Setpgid: true}
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if stdoutReplacementFD >= 0 {
			cmd.Stdout = os.NewFile(uintptr(stdoutReplacementFD), "stdout-replacement")
		}
		if startErr := cmd.Start(); startErr != nil {
			return startErr
		}
		proc.pid = cmd.Process.Pid
		return nil
	})
	if err != nil {
		proc.worker.close()
		return nil, newErr(KindLaunchFailed, "process.launch", err)
	}

	if debug {
		if _, err := proc.WaitOnSignal(); err != nil {
			proc.worker.close()
			return nil, err
		}
		if err := runOnErr(proc.worker, func() error {
			return unix.PtraceSetOptions(proc.pid, unix.PTRACE_O_TRACESYSGOOD|unix.PTRACE_O_EXITKILL)
		}); err != nil {
			proc.worker.close()
			return nil, newErr(KindLaunchFailed, "process.launch", err)
		}
	}

	return proc, nil
}

func resolveLaunchPath(bin string) (string, error) {
	path := bin
	if strings.HasPrefix(bin, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, bin[1:])
	} else if strings.HasPrefix(bin, "./") || !strings.HasPrefix(bin, "/") {
		if _, err := exec.LookPath(bin); err == nil {
			return bin, nil
		}
	}
	return filepath.Abs(path)
}

// AttachProcess attaches to an already-running process by pid.
func AttachProcess(pid int) (*Process, error) {
	proc := &Process{
		pid:            pid,
		terminateOnEnd: false,
		isAttached:     true,
		state:          StateStopped,
		syscallPolicy:  CatchNoSyscalls(),
		worker:         newPtraceWorker(),
	}
	proc.registers = newRegisters(proc)

	if !processAlive(pid) {
		proc.worker.close()
		return nil, newErr(KindAttachFailed, "process.attach", os.ErrNotExist)
	}

	err := runOnErr(proc.worker, func() error {
		return unix.PtraceAttach(pid)
	})
	if err != nil {
		proc.worker.close()
		return nil, newErr(KindAttachFailed, "process.attach", err)
	}

	if _, err := proc.WaitOnSignal(); err != nil {
		_ = runOnErr(proc.worker, func() error { return unix.PtraceDetach(pid) })
		proc.worker.close()
		return nil, err
	}

	_ = runOnErr(proc.worker, func() error {
		return unix.PtraceSetOptions(pid, unix.PTRACE_O_TRACESYSGOOD)
	})

	return proc, nil
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	_, err := os.Stat("/proc/" + strconv.Itoa(pid))
	return err == nil
}

// Close detaches or kills the tracee depending on how it was created,
// the way the original implementation's destructor does. Teardown
// errors are never surfaced — there is nothing a caller could do about
// a failure to detach from a process that's already gone.
func (p *Process) Close() {
	if p.closed {
		return
	}
	p.closed = true
	if p.pid <= 0 {
		p.worker.close()
		return
	}
	if p.state == StateRunning {
		_ = runOnErr(p.worker, func() error { return unix.Kill(p.pid, unix.SIGSTOP) })
		_, _ = p.waitRaw()
	}
	if p.isAttached {
		_ = runOnErr(p.worker, func() error { return unix.PtraceDetach(p.pid) })
	}
	if p.terminateOnEnd {
		_ = runOnErr(p.worker, func() error { return unix.Kill(p.pid, unix.SIGKILL) })
		_, _ = p.waitRaw()
	}
	p.worker.close()
}

// Resume lets the tracee run, honoring the active syscall catch
// policy by switching between PTRACE_CONT and PTRACE_SYSCALL.
func (p *Process) Resume() error {
	if p.state == StateExited || p.state == StateTerminated {
		return newErr(KindIllegalState, "process.resume", nil)
	}
	pc, err := p.GetPC()
	if err != nil {
		return err
	}
	if site, ok := p.breakpointSites.GetByAddress(pc); ok && site.IsEnabled() && !site.isHardware {
		if err := p.stepOverBreakpoint(site); err != nil {
			return err
		}
	}

	req := func() error { return unix.PtraceCont(p.pid, 0) }
	if p.syscallPolicy.mode != catchNone {
		req = func() error { return unix.PtraceSyscall(p.pid, 0) }
	}
	if err := runOnErr(p.worker, req); err != nil {
		return newErr(KindPtrace, "process.resume", err)
	}
	p.state = StateRunning
	return nil
}

func (p *Process) stepOverBreakpoint(site *BreakpointSite) error {
	if err := site.Disable(); err != nil {
		return err
	}
	defer site.Enable()
	if err := runOnErr(p.worker, func() error { return unix.PtraceSingleStep(p.pid) }); err != nil {
		return newErr(KindPtrace, "process.step_over_breakpoint", err)
	}
	_, err := p.waitRaw()
	return err
}

// WaitOnSignal blocks until the tracee's state changes and returns why.
func (p *Process) WaitOnSignal() (StopReason, error) {
	return p.waitRaw()
}

func (p *Process) waitRaw() (StopReason, error) {
	var ws unix.WaitStatus
	err := runOnErr(p.worker, func() error {
		_, e := unix.Wait4(p.pid, &ws, 0, nil)
		return e
	})
	if err != nil {
		return StopReason{}, newErr(KindPtrace, "process.wait", err)
	}

	reason := newStopReason(ws)
	switch reason.Reason {
	case StateExited, StateTerminated:
		p.state = reason.Reason
		return reason, nil
	}

	p.state = StateStopped
	if err := p.readAllRegisters(); err != nil {
		return reason, err
	}
	p.augmentStopReason(&reason)
	if reason.TrapReason != nil {
		switch *reason.TrapReason {
		case TrapSyscall:
			return p.maybeResumeFromSyscall(reason)
		case TrapHardwareBreak:
			// If the firing slot belongs to a watchpoint, refresh its
			// old/new observation before the stop is reported.
			if id, isWatch, err := p.GetCurrentHardwareStoppoint(); err == nil && isWatch {
				if wp, ok := p.watchpoints.GetByID(id); ok {
					_, _ = wp.UpdateData()
				}
			}
		}
	}
	return reason, nil
}

// StepInstruction single-steps exactly one machine instruction,
// transparently stepping over an enabled software breakpoint at the
// current PC instead of re-trapping on it immediately.
func (p *Process) StepInstruction() (StopReason, error) {
	if p.state == StateExited || p.state == StateTerminated {
		return StopReason{}, newErr(KindIllegalState, "process.step_instruction", nil)
	}
	pc, err := p.GetPC()
	if err != nil {
		return StopReason{}, err
	}
	if site, ok := p.breakpointSites.GetByAddress(pc); ok && site.IsEnabled() && !site.isHardware {
		if err := site.Disable(); err != nil {
			return StopReason{}, err
		}
		defer site.Enable()
	}
	if err := runOnErr(p.worker, func() error { return unix.PtraceSingleStep(p.pid) }); err != nil {
		return StopReason{}, newErr(KindPtrace, "process.step_instruction", err)
	}
	return p.waitRaw()
}

// augmentStopReason fills in TrapReason/SyscallInfo for a SIGTRAP stop,
// classifying it by siginfo_t.si_code the way the original
// implementation's augment_stop_reason does.
func (p *Process) augmentStopReason(reason *StopReason) {
	if reason.Reason != StateStopped {
		return
	}
	sig := int(reason.Info)

	if sig == int(unix.SIGTRAP)|0x80 {
		t := TrapSyscall
		reason.TrapReason = &t
		reason.SyscallInfo = p.decodeSyscallStop()
		return
	}
	if sig != int(unix.SIGTRAP) {
		return
	}

	var info unix.Siginfo
	err := runOnErr(p.worker, func() error {
		return ptraceGetSigInfo(p.pid, &info)
	})
	if err != nil {
		return
	}

	var t TrapType
	switch info.Code {
	case 0x2: // TRAP_TRACE
		t = TrapSingleStep
	case 0x1, 0x80: // TRAP_BRKPT / SI_KERNEL — an INT3 we planted
		t = TrapSoftwareBreak
		// The trap byte has already executed, so rip sits one past the
		// breakpoint. Report (and later resume from) the site itself.
		if pc, err := p.GetPC(); err == nil {
			_ = p.SetPC(pc.Add(-1))
		}
	case 0x4: // TRAP_HWBKPT
		t = TrapHardwareBreak
	default:
		t = TrapUnknown
	}
	reason.TrapReason = &t
}

func (p *Process) decodeSyscallStop() *SyscallInfo {
	regs := &p.registers.gpr
	if !p.expectingSysExit {
		p.expectingSysExit = true
		return &SyscallInfo{
			ID:    int(regs.Orig_rax),
			Entry: true,
			Args:  [6]int64{int64(regs.Rdi), int64(regs.Rsi), int64(regs.Rdx), int64(regs.R10), int64(regs.R8), int64(regs.R9)},
		}
	}
	p.expectingSysExit = false
	return &SyscallInfo{
		ID:    int(regs.Orig_rax),
		Entry: false,
		Ret:   int64(regs.Rax),
	}
}

// maybeResumeFromSyscall transparently resumes the tracee when it
// trapped on a syscall the active policy does not want reported,
// mirroring the original implementation's function of the same name.
func (p *Process) maybeResumeFromSyscall(reason StopReason) (StopReason, error) {
	if reason.SyscallInfo == nil || p.syscallPolicy.catches(reason.SyscallInfo.ID) {
		return reason, nil
	}
	if err := p.Resume(); err != nil {
		return reason, err
	}
	return p.waitRaw()
}

func (p *Process) SetSyscallCatchPolicy(policy SyscallCatchPolicy) {
	p.syscallPolicy = policy
}

// GetPC/SetPC read and write rip through the register file, the same
// path every other register access goes through.
func (p *Process) GetPC() (VAddr, error) {
	v, err := p.registers.ReadByID(R_rip)
	if err != nil {
		return 0, err
	}
	return VAddr(v.(uint64)), nil
}

func (p *Process) SetPC(addr VAddr) error {
	return p.registers.WriteByID(R_rip, uint64(addr))
}

func (p *Process) readAllRegisters() error {
	if err := runOnErr(p.worker, func() error {
		return unix.PtraceGetRegs(p.pid, &p.registers.gpr)
	}); err != nil {
		return newErr(KindPtrace, "process.get_regs", err)
	}
	if err := runOnErr(p.worker, func() error {
		return unix.PtraceGetFpRegs(p.pid, &p.registers.fpr)
	}); err != nil {
		return newErr(KindPtrace, "process.get_fpregs", err)
	}
	for i, off := range []uintptr{drDR0Offset, drDR1Offset, drDR2Offset, drDR3Offset, drDR6Offset, drDR7Offset} {
		val, err := p.peekUser(off)
		if err != nil {
			return err
		}
		p.registers.debug[i] = val
	}
	return nil
}

func (p *Process) writeGPRegs(regs *unix.PtraceRegs) error {
	return runOnErr(p.worker, func() error { return unix.PtraceSetRegs(p.pid, regs) })
}

func (p *Process) writeFPRegs(regs *unix.PtraceFpRegs) error {
	return runOnErr(p.worker, func() error { return unix.PtraceSetFpRegs(p.pid, regs) })
}

func (p *Process) writeUserArea(offset uintptr, data uint64) error {
	buf := make([]byte, 8)
	lePutUint64(buf, data)
	return runOnErr(p.worker, func() error {
		_, err := unix.PtracePokeUser(p.pid, offset, buf)
		return err
	})
}

func (p *Process) peekUser(offset uintptr) (uint64, error) {
	buf := make([]byte, 8)
	err := runOnErr(p.worker, func() error {
		_, err := unix.PtracePeekUser(p.pid, offset, buf)
		return err
	})
	if err != nil {
		return 0, newErr(KindPtrace, "process.peek_user", err)
	}
	return leUint64(buf), nil
}

// readMemoryRaw/writeMemoryRaw go straight to the tracee's address
// space with no breakpoint masking, used internally by BreakpointSite
// to install/remove its trap byte.
func (p *Process) readMemoryRaw(addr VAddr, n int) ([]byte, error) {
	return runOn(p.worker, func() ([]byte, error) {
		buf := make([]byte, n)
		count, err := unix.PtracePeekData(p.pid, uintptr(addr), buf)
		if err != nil {
			return nil, newErr(KindMemoryAccess, "process.read_memory", err)
		}
		return buf[:count], nil
	})
}

func (p *Process) writeMemoryRaw(addr VAddr, data []byte) error {
	return runOnErr(p.worker, func() error {
		_, err := unix.PtracePokeData(p.pid, uintptr(addr), data)
		if err != nil {
			return newErr(KindMemoryAccess, "process.write_memory", err)
		}
		return nil
	})
}

const pageSize = 4096

// ReadMemory reads amount bytes starting at address with one vectored
// process_vm_readv call, splitting the range at page boundaries — the
// kernel stops a whole iovec on the first fault inside it, so a read
// spanning an unmapped page would otherwise lose the mapped part too.
// It does not need the ptrace-owning thread.
func (p *Process) ReadMemory(address VAddr, amount int) ([]byte, error) {
	if amount <= 0 {
		return nil, nil
	}
	out := make([]byte, amount)
	local := []unix.Iovec{{Base: &out[0], Len: uint64(amount)}}

	var remote []unix.RemoteIovec
	for off := 0; off < amount; {
		addr := uint64(address) + uint64(off)
		chunk := amount - off
		if toPageEnd := int(pageSize - addr%pageSize); chunk > toPageEnd {
			chunk = toPageEnd
		}
		remote = append(remote, unix.RemoteIovec{Base: uintptr(addr), Len: chunk})
		off += chunk
	}

	n, err := unix.ProcessVMReadv(p.pid, local, remote, 0)
	if err != nil {
		return nil, newErr(KindMemoryAccess, "process.read_memory", err)
	}
	return out[:n], nil
}

// ReadMemoryWithoutTraps behaves like ReadMemory but patches out the
// INT3 byte of every enabled software breakpoint covering the read
// range, so a caller decoding instructions never sees the trap opcode.
func (p *Process) ReadMemoryWithoutTraps(address VAddr, amount int) ([]byte, error) {
	data, err := p.ReadMemory(address, amount)
	if err != nil {
		return nil, err
	}
	p.breakpointSites.ForEach(func(site *BreakpointSite) {
		if site.isHardware || !site.enabled {
			return
		}
		if uint64(site.Address()) < uint64(address) {
			return
		}
		off := uint64(site.Address()) - uint64(address)
		if off < uint64(len(data)) {
			data[off] = site.origByte
		}
	})
	return data, nil
}

func (p *Process) WriteMemory(address VAddr, data []byte) error {
	return p.writeMemoryRaw(address, data)
}

// ReadMemoryAs reads one value of type T straight out of the tracee's
// memory, for fixed-layout plain data only.
func ReadMemoryAs[T any](p *Process, address VAddr) (T, error) {
	var out T
	size := int(unsafe.Sizeof(out))
	data, err := p.ReadMemory(address, size)
	if err != nil {
		return out, err
	}
	if len(data) < size {
		return out, newErr(KindMemoryAccess, "process.read_memory", nil)
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&out)), size), data)
	return out, nil
}

// CreateBreakpointSite installs a new breakpoint (disabled until
// Enable is called), assigning it the next id in this Process's own
// sequence. Internal sites, created by the controller for its own
// stepping needs, get id -1 and are skipped by user-facing listings.
func (p *Process) CreateBreakpointSite(address VAddr, hardware, internal bool) (*BreakpointSite, error) {
	if p.breakpointSites.ContainsAddress(address) {
		return nil, newErr(KindIllegalState, "process.create_breakpoint_site", nil)
	}
	id := int64(-1)
	if !internal {
		id = p.nextID()
	}
	site := &BreakpointSite{id: id, proc: p, addr: address, isHardware: hardware, isInternal: internal, hwIndex: -1}
	return p.breakpointSites.Push(site), nil
}

// CreateWatchpoint registers a data watchpoint. The address must be
// aligned to the watched size, which must be 1, 2, 4 or 8 — the only
// operand widths DR7's length field can encode.
func (p *Process) CreateWatchpoint(address VAddr, mode StoppointMode, size int) (*WatchpointSite, error) {
	switch size {
	case 1, 2, 4, 8:
	default:
		return nil, newErr(KindAlignment, "process.create_watchpoint", nil)
	}
	if uint64(address)%uint64(size) != 0 {
		return nil, newErr(KindAlignment, "process.create_watchpoint", nil)
	}
	if p.watchpoints.ContainsAddress(address) {
		return nil, newErr(KindIllegalState, "process.create_watchpoint", nil)
	}
	wp := &WatchpointSite{id: p.nextID(), proc: p, addr: address, mode: mode, size: size, hwIndex: -1}
	return p.watchpoints.Push(wp), nil
}

func (p *Process) readWatchedValue(w *WatchpointSite) (uint64, error) {
	data, err := p.ReadMemory(w.addr, w.size)
	if err != nil {
		return 0, err
	}
	var buf [8]byte
	copy(buf[:], data)
	return leUint64(buf[:]), nil
}

// setHardwareStoppoint arbitrates a free DR0-DR3 slot, installs addr
// with the given mode/size encoding, and returns the slot index. Per
// the design note resolving the hardware-breakpoint Open Question,
// BreakpointSite always calls this with mode=ModeExecute, size=1.
func (p *Process) setHardwareStoppoint(addr VAddr, mode StoppointMode, size int) (int, error) {
	slot := p.findFreeHWSlot()
	if slot < 0 {
		return 0, newErr(KindNoFreeDebugRegister, "process.set_hardware_stoppoint", nil)
	}
	p.hwSlotUsed[slot] = true

	dr7, err := p.peekUser(drDR7Offset)
	if err != nil {
		return 0, err
	}

	drOffset := uintptr(drDR0Offset + slot*8)
	if err := p.writeUserArea(drOffset, uint64(addr)); err != nil {
		return 0, err
	}

	enableBit := uint64(1) << (slot * 2)
	condShift := uint(16 + slot*4)
	sizeShift := uint(18 + slot*4)
	condBits := uint64(encodeCondition(mode)) << condShift
	sizeBits := uint64(encodeSize(size)) << sizeShift

	clearMask := ^(uint64(0xF)<<condShift | uint64(0x3)<<(slot*2))
	newDR7 := (dr7 & clearMask) | enableBit | condBits | sizeBits

	if err := p.writeUserArea(drDR7Offset, newDR7); err != nil {
		return 0, err
	}
	return slot, nil
}

func (p *Process) findFreeHWSlot() int {
	for i, used := range p.hwSlotUsed {
		if !used {
			return i
		}
	}
	return -1
}

func (p *Process) clearHardwareStoppoint(slot int) error {
	if slot < 0 || slot >= 4 {
		return newErr(KindIllegalState, "process.clear_hardware_stoppoint", nil)
	}
	p.hwSlotUsed[slot] = false
	if err := p.writeUserArea(uintptr(drDR0Offset+slot*8), 0); err != nil {
		return err
	}
	dr7, err := p.peekUser(drDR7Offset)
	if err != nil {
		return err
	}
	clearMask := ^(uint64(0x3) << (slot * 2))
	return p.writeUserArea(drDR7Offset, dr7&clearMask)
}

func encodeCondition(mode StoppointMode) uint8 {
	switch mode {
	case ModeWrite:
		return 0b01
	case ModeReadWrite:
		return 0b11
	default:
		return 0b00
	}
}

func encodeSize(size int) uint8 {
	switch size {
	case 1:
		return 0b00
	case 2:
		return 0b01
	case 8:
		return 0b10
	case 4:
		return 0b11
	default:
		return 0b00
	}
}

// GetCurrentHardwareStoppoint finds which breakpoint or watchpoint
// occupies the DR slot reported by DR6's status bits, used to
// disambiguate a TrapHardwareBreak stop between the two stoppoint
// collections.
func (p *Process) GetCurrentHardwareStoppoint() (id int64, isWatchpoint bool, err error) {
	dr6, err := p.peekUser(drDR6Offset)
	if err != nil {
		return 0, false, err
	}
	slot := -1
	for i := 0; i < 4; i++ {
		if dr6&(1<<i) != 0 {
			slot = i
			break
		}
	}
	if slot < 0 {
		return 0, false, newErr(KindNotFound, "process.get_current_hardware_stoppoint", nil)
	}

	pc, err := p.GetPC()
	if err == nil {
		if site, ok := findHWSite(&p.breakpointSites, pc); ok {
			return site.ID(), false, nil
		}
	}
	var found *WatchpointSite
	p.watchpoints.ForEach(func(w *WatchpointSite) {
		if w.hwIndex == slot {
			found = w
		}
	})
	if found != nil {
		return found.ID(), true, nil
	}
	return 0, false, newErr(KindNotFound, "process.get_current_hardware_stoppoint", nil)
}

func findHWSite(c *StoppointCollection[*BreakpointSite], addr VAddr) (*BreakpointSite, bool) {
	var found *BreakpointSite
	c.ForEach(func(b *BreakpointSite) {
		if b.isHardware && b.addr == addr {
			found = b
		}
	})
	return found, found != nil
}

// GetAuxVector parses /proc/<pid>/auxv, giving callers (Target's load
// bias computation) the AT_* entries the kernel handed the tracee at
// exec time.
func (p *Process) GetAuxVector() (map[int]uint64, error) {
	data, err := os.ReadFile("/proc/" + strconv.Itoa(p.pid) + "/auxv")
	if err != nil {
		return nil, newErr(KindNotFound, "process.get_aux_vector", err)
	}
	out := make(map[int]uint64)
	for i := 0; i+16 <= len(data); i += 16 {
		key := leUint64(data[i : i+8])
		val := leUint64(data[i+8 : i+16])
		if key == 0 {
			break
		}
		out[int(key)] = val
	}
	return out, nil
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func lePutUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v)
		v >>= 8
	}
}
