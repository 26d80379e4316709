package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/chzyer/readline"

	"golang.org/x/sys/unix"

	"sdb"
)

// Interactive runs the command loop until a quit command or end of
// input; the inferior exiting does not end it.
// Ctrl+C never kills the debugger: it is translated into a SIGSTOP for
// the inferior so a runaway `continue` can be interrupted and the
// session keeps going.
func (s *session) Interactive() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT)
	defer signal.Stop(sigChan)

	go func() {
		for range sigChan {
			proc := s.target.Process()
			if proc.State() == sdb.StateRunning {
				_ = unix.Kill(proc.PID(), unix.SIGSTOP)
			}
		}
	}()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            "[sdb]$ ",
		HistoryFile:       "/tmp/sdb_history.txt",
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
		FuncFilterInputRune: func(r rune) (rune, bool) {
			switch r {
			case readline.CharCtrlZ:
				return r, false
			}
			return r, true
		},
	})
	if err != nil {
		panic(err)
	}
	defer rl.Close()

	prev := ""
	for {
		proc := s.target.Process()
		if proc.State() == sdb.StateStopped {
			if pc, err := proc.GetPC(); err == nil {
				rl.SetPrompt(fmt.Sprintf("[%ssdb%s:%s0x%x%s]$ ", ColorCyan, ColorReset, ColorCyan, uint64(pc), ColorReset))
			}
		} else {
			rl.SetPrompt("[sdb]$ ")
		}

		req, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				break
			}
			continue
		}

		if req == "" {
			if prev == "" {
				continue
			}
			req = prev
		}
		if req == "q" || req == "exit" || req == "quit" {
			break
		}
		prev = req

		if err := s.cmdExec(req); err != nil {
			LogError(err.Error())
		}
	}
}
