package sdb

import (
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func binPath(t *testing.T, name string) string {
	t.Helper()
	path, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("%s not available", name)
	}
	return path
}

func launch(t *testing.T, path string, args ...string) *Process {
	t.Helper()
	proc, err := LaunchProcess(path, true, -1, args...)
	require.NoError(t, err)
	t.Cleanup(proc.Close)
	return proc
}

func launchTarget(t *testing.T, path string, stdoutFD int, args ...string) *Target {
	t.Helper()
	target, err := LaunchTarget(path, stdoutFD, args...)
	require.NoError(t, err)
	t.Cleanup(target.Close)
	return target
}

func TestLaunchNonexistentPath(t *testing.T) {
	_, err := LaunchProcess("/no/such/binary/at/all", true, -1)
	require.Error(t, err)
	require.True(t, IsKind(err, KindLaunchFailed), "got %v", err)
}

func TestLaunchWaitExitResume(t *testing.T) {
	proc := launch(t, binPath(t, "true"))
	require.Equal(t, StateStopped, proc.State())

	require.NoError(t, proc.Resume())
	reason, err := proc.WaitOnSignal()
	require.NoError(t, err)
	require.Equal(t, StateExited, reason.Reason)
	require.EqualValues(t, 0, reason.Info)

	err = proc.Resume()
	require.True(t, IsKind(err, KindIllegalState), "got %v", err)
}

func TestAttachRejectsBadPID(t *testing.T) {
	_, err := AttachProcess(0)
	require.True(t, IsKind(err, KindAttachFailed), "got %v", err)
}

func TestAttachToRunningProcess(t *testing.T) {
	cmd := exec.Command(binPath(t, "sleep"), "10")
	require.NoError(t, cmd.Start())
	defer func() {
		cmd.Process.Kill()
		cmd.Wait()
	}()
	// Give it a moment to reach sleep.
	time.Sleep(50 * time.Millisecond)

	proc, err := AttachProcess(cmd.Process.Pid)
	require.NoError(t, err)
	require.Equal(t, StateStopped, proc.State())

	pc, err := proc.GetPC()
	require.NoError(t, err)
	require.NotZero(t, pc)

	proc.Close()
}

func TestStepInstruction(t *testing.T) {
	proc := launch(t, binPath(t, "true"))
	before, err := proc.GetPC()
	require.NoError(t, err)

	reason, err := proc.StepInstruction()
	require.NoError(t, err)
	require.Equal(t, StateStopped, reason.Reason)
	require.NotNil(t, reason.TrapReason)
	require.Equal(t, TrapSingleStep, *reason.TrapReason)

	after, err := proc.GetPC()
	require.NoError(t, err)
	require.NotEqual(t, before, after)
}

func TestRegisterWriteReachesInferior(t *testing.T) {
	proc := launch(t, binPath(t, "true"))

	require.NoError(t, proc.Registers().WriteByName("rsi", uint64(0xcafecafe)))

	// Re-pull the whole user area; the write must have made it to the
	// kernel, not just the local cache.
	require.NoError(t, proc.readAllRegisters())
	v, err := proc.Registers().ReadByName("rsi")
	require.NoError(t, err)
	require.EqualValues(t, uint64(0xcafecafe), v)
}

func TestMemoryReadWriteRoundTrip(t *testing.T) {
	proc := launch(t, binPath(t, "true"))

	sp, err := proc.Registers().ReadByName("rsp")
	require.NoError(t, err)
	addr := VAddr(sp.(uint64))

	payload := []byte{0xde, 0xad, 0xbe, 0xef, 0x13, 0x37}
	require.NoError(t, proc.WriteMemory(addr, payload))

	got, err := proc.ReadMemory(addr, len(payload))
	require.NoError(t, err)
	require.Equal(t, payload, got)

	word, err := ReadMemoryAs[uint32](proc, addr)
	require.NoError(t, err)
	require.EqualValues(t, uint32(0xefbeadde), word)
}

func TestReadMemoryUnmapped(t *testing.T) {
	proc := launch(t, binPath(t, "true"))
	_, err := proc.ReadMemory(VAddr(8), 16)
	require.True(t, IsKind(err, KindMemoryAccess), "got %v", err)
}

func TestSoftwareBreakpointAtEntry(t *testing.T) {
	stdout, err := newPipe(true)
	require.NoError(t, err)
	defer stdout.close()

	target := launchTarget(t, binPath(t, "echo"), stdout.write, "Hello, sdb!")
	stdout.closeWrite()
	proc := target.Process()
	entry := target.EntryPoint()
	require.NotZero(t, entry)

	site, err := proc.CreateBreakpointSite(entry, false, false)
	require.NoError(t, err)
	require.NoError(t, site.Enable())

	require.NoError(t, proc.Resume())
	reason, err := proc.WaitOnSignal()
	require.NoError(t, err)
	require.Equal(t, StateStopped, reason.Reason)
	require.NotNil(t, reason.TrapReason)
	require.Equal(t, TrapSoftwareBreak, *reason.TrapReason)

	pc, err := proc.GetPC()
	require.NoError(t, err)
	require.Equal(t, entry, pc)

	require.NoError(t, proc.Resume())
	reason, err = proc.WaitOnSignal()
	require.NoError(t, err)
	require.Equal(t, StateExited, reason.Reason)

	out, err := stdout.readAll()
	require.NoError(t, err)
	require.Equal(t, "Hello, sdb!\n", string(out))
}

func TestReadMemoryWithoutTraps(t *testing.T) {
	target := launchTarget(t, binPath(t, "true"), -1)
	proc := target.Process()
	entry := target.EntryPoint()

	orig, err := proc.ReadMemory(entry, 16)
	require.NoError(t, err)

	site, err := proc.CreateBreakpointSite(entry, false, false)
	require.NoError(t, err)
	require.NoError(t, site.Enable())

	patched, err := proc.ReadMemory(entry, 16)
	require.NoError(t, err)
	require.EqualValues(t, 0xCC, patched[0])

	clean, err := proc.ReadMemoryWithoutTraps(entry, 16)
	require.NoError(t, err)
	require.Equal(t, orig, clean)

	require.NoError(t, site.Disable())
	restored, err := proc.ReadMemory(entry, 16)
	require.NoError(t, err)
	require.Equal(t, orig, restored)
}

func TestHardwareBreakpointAtEntry(t *testing.T) {
	target := launchTarget(t, binPath(t, "true"), -1)
	proc := target.Process()
	entry := target.EntryPoint()

	site, err := proc.CreateBreakpointSite(entry, true, false)
	require.NoError(t, err)
	require.NoError(t, site.Enable())

	// The slot's enable bit must be visible in DR7.
	dr7, err := proc.peekUser(drDR7Offset)
	require.NoError(t, err)
	require.NotZero(t, dr7&0xFF)

	require.NoError(t, proc.Resume())
	reason, err := proc.WaitOnSignal()
	require.NoError(t, err)
	require.Equal(t, StateStopped, reason.Reason)
	require.NotNil(t, reason.TrapReason)
	require.Equal(t, TrapHardwareBreak, *reason.TrapReason)

	pc, err := proc.GetPC()
	require.NoError(t, err)
	require.Equal(t, entry, pc)

	id, isWatch, err := proc.GetCurrentHardwareStoppoint()
	require.NoError(t, err)
	require.False(t, isWatch)
	require.Equal(t, site.ID(), id)

	require.NoError(t, site.Disable())
	dr7, err = proc.peekUser(drDR7Offset)
	require.NoError(t, err)
	require.Zero(t, dr7&0x3)
}

func TestHardwareSlotArbitration(t *testing.T) {
	proc := launch(t, binPath(t, "true"))

	var wps []*WatchpointSite
	for i := 0; i < 4; i++ {
		wp, err := proc.CreateWatchpoint(VAddr(0x1000+i*8), ModeWrite, 8)
		require.NoError(t, err)
		require.NoError(t, wp.Enable())
		wps = append(wps, wp)
	}

	extra, err := proc.CreateWatchpoint(VAddr(0x2000), ModeWrite, 8)
	require.NoError(t, err)
	err = extra.Enable()
	require.True(t, IsKind(err, KindNoFreeDebugRegister), "got %v", err)

	// Freeing any slot makes room again.
	require.NoError(t, wps[2].Disable())
	require.NoError(t, extra.Enable())
	require.NoError(t, extra.Disable())
}

func TestWatchpointAlignment(t *testing.T) {
	proc := launch(t, binPath(t, "true"))

	_, err := proc.CreateWatchpoint(VAddr(0x1001), ModeWrite, 4)
	require.True(t, IsKind(err, KindAlignment), "got %v", err)

	_, err = proc.CreateWatchpoint(VAddr(0x1000), ModeReadWrite, 3)
	require.True(t, IsKind(err, KindAlignment), "got %v", err)
}

func TestSyscallCatchpoint(t *testing.T) {
	devnull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	require.NoError(t, err)
	defer devnull.Close()

	proc, err := LaunchProcess(binPath(t, "echo"), true, int(devnull.Fd()), "hi")
	require.NoError(t, err)
	t.Cleanup(proc.Close)

	writeID, ok := SyscallNameToID("write")
	require.True(t, ok)
	proc.SetSyscallCatchPolicy(CatchSomeSyscalls([]int{writeID}))

	require.NoError(t, proc.Resume())
	reason, err := proc.WaitOnSignal()
	require.NoError(t, err)
	require.Equal(t, StateStopped, reason.Reason)
	require.NotNil(t, reason.TrapReason)
	require.Equal(t, TrapSyscall, *reason.TrapReason)
	require.NotNil(t, reason.SyscallInfo)
	require.Equal(t, writeID, reason.SyscallInfo.ID)
	require.True(t, reason.SyscallInfo.Entry)

	require.NoError(t, proc.Resume())
	reason, err = proc.WaitOnSignal()
	require.NoError(t, err)
	require.NotNil(t, reason.SyscallInfo)
	require.Equal(t, writeID, reason.SyscallInfo.ID)
	require.False(t, reason.SyscallInfo.Entry)
}

func TestAuxVectorAndMemoryRegions(t *testing.T) {
	target := launchTarget(t, binPath(t, "true"), -1)
	proc := target.Process()

	aux, err := proc.GetAuxVector()
	require.NoError(t, err)
	require.NotZero(t, aux[auxvATEntry])

	entry := target.EntryPoint()
	require.EqualValues(t, aux[auxvATEntry], uint64(entry))

	regions, err := proc.MemoryRegions()
	require.NoError(t, err)
	require.NotEmpty(t, regions)

	var covered bool
	for _, r := range regions {
		if r.Contains(entry) {
			covered = true
			require.True(t, strings.Contains(r.Perms, "x"), "entry region %q not executable", r.Perms)
		}
	}
	require.True(t, covered, "entry point not in any mapped region")
}

func TestInternalSitesHiddenID(t *testing.T) {
	proc := launch(t, binPath(t, "true"))

	internal, err := proc.CreateBreakpointSite(VAddr(0x1000), false, true)
	require.NoError(t, err)
	require.True(t, internal.IsInternal())
	require.EqualValues(t, -1, internal.ID())

	user, err := proc.CreateBreakpointSite(VAddr(0x2000), false, false)
	require.NoError(t, err)
	require.Greater(t, user.ID(), int64(0))
}

func TestDuplicateBreakpointAddressRejected(t *testing.T) {
	proc := launch(t, binPath(t, "true"))
	_, err := proc.CreateBreakpointSite(VAddr(0x1000), false, false)
	require.NoError(t, err)
	_, err = proc.CreateBreakpointSite(VAddr(0x1000), false, false)
	require.True(t, IsKind(err, KindIllegalState), "got %v", err)
}
