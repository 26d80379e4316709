package main

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"

	"sdb"
)

type cmdHandler struct {
	regex *regexp.Regexp
	fn    func(*session, []string) error
}

const hexArg = `(0[xX][0-9a-fA-F]+|[0-9a-fA-F]+)`

var compiledCmds = []cmdHandler{
	{regexp.MustCompile(`^\s*(c|continue|cont)\s*$`), (*session).cmdContinue},
	{regexp.MustCompile(`^\s*(step|si|s)\s*$`), (*session).cmdStep},
	{regexp.MustCompile(`^\s*(register|reg|regs)\s+read(?:\s+(\w+))?\s*$`), (*session).cmdRegisterRead},
	{regexp.MustCompile(`^\s*(register|reg|regs)\s+write\s+(\w+)\s+(.+)$`), (*session).cmdRegisterWrite},
	{regexp.MustCompile(`^\s*(memory|mem)\s+read\s+` + hexArg + `(?:\s+(\d+))?\s*$`), (*session).cmdMemoryRead},
	{regexp.MustCompile(`^\s*(memory|mem)\s+write\s+` + hexArg + `\s+(\[.+\])\s*$`), (*session).cmdMemoryWrite},
	{regexp.MustCompile(`^\s*(breakpoint|break|bp|b)\s+set\s+` + hexArg + `(\s+-h)?\s*$`), (*session).cmdBreakpointSet},
	{regexp.MustCompile(`^\s*(breakpoint|break|bp|b)\s+(list|enable|disable|delete)(?:\s+(\d+))?\s*$`), (*session).cmdBreakpointCtl},
	{regexp.MustCompile(`^\s*(watchpoint|watch|wp)\s+set\s+` + hexArg + `\s+(write|rw|execute)\s+(1|2|4|8)\s*$`), (*session).cmdWatchpointSet},
	{regexp.MustCompile(`^\s*(watchpoint|watch|wp)\s+(list|enable|disable|delete)(?:\s+(\d+))?\s*$`), (*session).cmdWatchpointCtl},
	{regexp.MustCompile(`^\s*(catchpoint|catch)\s+syscall(?:\s+(\S+))?\s*$`), (*session).cmdCatchSyscall},
	{regexp.MustCompile(`^\s*(disassemble|disass|dis)(?:\s+-c\s+(\d+))?(?:\s+-a\s+` + hexArg + `)?\s*$`), (*session).cmdDisassemble},
	{regexp.MustCompile(`^\s*(vmmap|VMMAP)\s*$`), (*session).cmdVmmap},
	{regexp.MustCompile(`^\s*(sym|symbol)\s+(\S+)\s*$`), (*session).cmdSym},
}

type session struct {
	target *sdb.Target
}

func (s *session) cmdExec(req string) error {
	for _, handler := range compiledCmds {
		if m := handler.regex.FindStringSubmatch(req); m != nil {
			return handler.fn(s, m)
		}
	}
	return errors.New("unknown command")
}

func (s *session) cmdContinue(args []string) error {
	proc := s.target.Process()
	if err := proc.Resume(); err != nil {
		return err
	}
	reason, err := proc.WaitOnSignal()
	if err != nil {
		return err
	}
	s.printStopReason(reason)
	return nil
}

func (s *session) cmdStep(args []string) error {
	reason, err := s.target.Process().StepInstruction()
	if err != nil {
		return err
	}
	s.printStopReason(reason)
	return nil
}

func (s *session) cmdRegisterRead(args []string) error {
	name := args[2]
	switch name {
	case "", "all":
		s.printRegisters(name == "all")
		return nil
	default:
		v, err := s.target.Process().Registers().ReadByName(name)
		if err != nil {
			return err
		}
		Printf("%s = %s\n", name, formatRegisterValue(v))
		return nil
	}
}

func (s *session) cmdRegisterWrite(args []string) error {
	name, text := args[2], strings.TrimSpace(args[3])
	info, ok := sdb.LookupRegister(name)
	if !ok {
		return fmt.Errorf("unknown register %q", name)
	}
	val, err := sdb.ParseRegisterValue(info, text)
	if err != nil {
		return err
	}
	if err := s.target.Process().Registers().Write(info, val); err != nil {
		return err
	}
	Printf("%s = %s\n", name, text)
	return nil
}

func (s *session) cmdMemoryRead(args []string) error {
	addr, err := sdb.ParseVAddr(args[2])
	if err != nil {
		return err
	}
	n := 32
	if args[3] != "" {
		n, _ = strconv.Atoi(args[3])
	}
	data, err := s.target.Process().ReadMemory(addr, n)
	if err != nil {
		return err
	}
	hexDump(addr, data)
	return nil
}

func (s *session) cmdMemoryWrite(args []string) error {
	addr, err := sdb.ParseVAddr(args[2])
	if err != nil {
		return err
	}
	data, err := sdb.ParseByteVector(args[3])
	if err != nil {
		return err
	}
	if err := s.target.Process().WriteMemory(addr, data); err != nil {
		return err
	}
	Printf("wrote %d bytes @ %x\n", len(data), uint64(addr))
	return nil
}

func (s *session) cmdBreakpointSet(args []string) error {
	addr, err := sdb.ParseVAddr(args[2])
	if err != nil {
		return err
	}
	hardware := strings.TrimSpace(args[3]) == "-h"
	site, err := s.target.Process().CreateBreakpointSite(addr, hardware, false)
	if err != nil {
		return err
	}
	if err := site.Enable(); err != nil {
		s.target.Process().BreakpointSites().RemoveByID(site.ID())
		return err
	}
	kind := "breakpoint"
	if hardware {
		kind = "hardware breakpoint"
	}
	Printf("%s %d added at %x\n", kind, int(site.ID()), uint64(addr))
	return nil
}

func (s *session) cmdBreakpointCtl(args []string) error {
	sites := s.target.Process().BreakpointSites()
	op := args[2]

	if op == "list" {
		if sites.Empty() {
			Printf("no breakpoints\n")
			return nil
		}
		hLine("breakpoints")
		sites.ForEach(func(b *sdb.BreakpointSite) {
			if b.IsInternal() {
				return
			}
			kind := "software"
			if b.IsHardware() {
				kind = "hardware"
			}
			Printf("%d: addr=0x%016x, %s, %s\n", int(b.ID()), uint64(b.Address()), kind, enabledStr(b.IsEnabled()))
		})
		return nil
	}

	if args[3] == "" {
		return errors.New("command expects a breakpoint id")
	}
	id, _ := strconv.ParseInt(args[3], 10, 64)
	site, ok := sites.GetByID(id)
	if !ok {
		return fmt.Errorf("no breakpoint with id %d", id)
	}
	switch op {
	case "enable":
		return site.Enable()
	case "disable":
		return site.Disable()
	case "delete":
		return sites.RemoveByID(id)
	}
	return nil
}

func (s *session) cmdWatchpointSet(args []string) error {
	addr, err := sdb.ParseVAddr(args[2])
	if err != nil {
		return err
	}
	var mode sdb.StoppointMode
	switch args[3] {
	case "write":
		mode = sdb.ModeWrite
	case "rw":
		mode = sdb.ModeReadWrite
	case "execute":
		mode = sdb.ModeExecute
	}
	size, _ := strconv.Atoi(args[4])

	wp, err := s.target.Process().CreateWatchpoint(addr, mode, size)
	if err != nil {
		return err
	}
	if err := wp.Enable(); err != nil {
		s.target.Process().Watchpoints().RemoveByID(wp.ID())
		return err
	}
	Printf("watchpoint %d added at %x (%s, %d bytes)\n", int(wp.ID()), uint64(addr), args[3], size)
	return nil
}

func (s *session) cmdWatchpointCtl(args []string) error {
	wps := s.target.Process().Watchpoints()
	op := args[2]

	if op == "list" {
		if wps.Empty() {
			Printf("no watchpoints\n")
			return nil
		}
		hLine("watchpoints")
		wps.ForEach(func(w *sdb.WatchpointSite) {
			Printf("%d: addr=0x%016x, mode=%s, size=%d, %s\n",
				int(w.ID()), uint64(w.Address()), w.Mode().String(), w.Size(), enabledStr(w.IsEnabled()))
		})
		return nil
	}

	if args[3] == "" {
		return errors.New("command expects a watchpoint id")
	}
	id, _ := strconv.ParseInt(args[3], 10, 64)
	wp, ok := wps.GetByID(id)
	if !ok {
		return fmt.Errorf("no watchpoint with id %d", id)
	}
	switch op {
	case "enable":
		return wp.Enable()
	case "disable":
		return wp.Disable()
	case "delete":
		return wps.RemoveByID(id)
	}
	return nil
}

func (s *session) cmdCatchSyscall(args []string) error {
	proc := s.target.Process()
	arg := args[2]
	switch arg {
	case "":
		proc.SetSyscallCatchPolicy(sdb.CatchAllSyscalls())
		Printf("catching %s syscalls\n", "all")
	case "none":
		proc.SetSyscallCatchPolicy(sdb.CatchNoSyscalls())
		Printf("catching %s syscalls\n", "no")
	default:
		var ids []int
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if id, err := strconv.Atoi(part); err == nil {
				ids = append(ids, id)
				continue
			}
			id, ok := sdb.SyscallNameToID(part)
			if !ok {
				return fmt.Errorf("unknown syscall %q", part)
			}
			ids = append(ids, id)
		}
		proc.SetSyscallCatchPolicy(sdb.CatchSomeSyscalls(ids))
		Printf("catching %d syscalls\n", len(ids))
	}
	return nil
}

func (s *session) cmdDisassemble(args []string) error {
	count := 5
	if args[2] != "" {
		count, _ = strconv.Atoi(args[2])
	}
	var addr sdb.VAddr
	if args[3] != "" {
		a, err := sdb.ParseVAddr(args[3])
		if err != nil {
			return err
		}
		addr = a
	}
	instrs, err := s.target.DisassembleAt(addr, count)
	if err != nil {
		return err
	}
	hLine("disassembly")
	for _, in := range instrs {
		if sym, ok := s.target.SymbolAt(sdb.VAddr(in.Address)); ok {
			Printf("0x%016x <%s>: %s\n", in.Address, sym.DisplayName(), in.Text)
			continue
		}
		Printf("0x%016x: %s\n", in.Address, in.Text)
	}
	return nil
}

func (s *session) cmdVmmap(args []string) error {
	regions, err := s.target.Process().MemoryRegions()
	if err != nil {
		return err
	}
	hLine("vmmap")
	for _, r := range regions {
		Printf("0x%016x-0x%016x %s %s\n", uint64(r.Start), uint64(r.End), r.Perms, r.Path)
	}
	return nil
}

func (s *session) cmdSym(args []string) error {
	name := args[2]
	syms := s.target.FindSymbols(name)
	switch len(syms) {
	case 0:
		return fmt.Errorf("no symbol named %q", name)
	case 1:
		s.printSymbol(syms[0])
		return nil
	}

	items := make([]string, len(syms))
	for i, sym := range syms {
		items[i] = fmt.Sprintf("%s @ 0x%x", sym.DisplayName(), uint64(sym.Value))
	}
	prompt := promptui.Select{Label: "Multiple symbols match", Items: items}
	idx, _, err := prompt.Run()
	if err != nil {
		return err
	}
	s.printSymbol(syms[idx])
	return nil
}

func (s *session) printSymbol(sym *sdb.Sym) {
	Printf("%s: file addr 0x%016x, size %d\n", sym.DisplayName(), uint64(sym.Value), int(sym.Size))
	if v, ok := s.target.Elf().ToVAddr(sym.Value); ok {
		Printf("virtual addr 0x%016x\n", uint64(v))
	}
}

func enabledStr(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}
