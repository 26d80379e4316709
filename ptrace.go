package sdb

import (
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ptraceWorker pins one goroutine to one OS thread and funnels every
// ptrace/waitpid call for a single tracee through it, since Linux
// requires all such calls to originate from the thread that attached
// to (or launched) the tracee.
type ptraceWorker struct {
	req  chan ptraceReq
	done chan struct{}
}

type ptraceResp struct {
	v   any
	err error
}

type ptraceReq struct {
	run  func() (any, error)
	resp chan ptraceResp
}

func newPtraceWorker() *ptraceWorker {
	w := &ptraceWorker{
		req:  make(chan ptraceReq),
		done: make(chan struct{}),
	}

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(w.done)

		for q := range w.req {
			var out any
			var err error
			func() {
				defer func() {
					if x := recover(); x != nil {
						err = fmt.Errorf("%v", x)
					}
				}()
				out, err = q.run()
			}()
			q.resp <- ptraceResp{out, err}
			close(q.resp)
		}
	}()

	return w
}

func (w *ptraceWorker) close() {
	close(w.req)
	<-w.done
}

func runOn[T any](w *ptraceWorker, fn func() (T, error)) (T, error) {
	resp := make(chan ptraceResp, 1)
	w.req <- ptraceReq{
		run:  func() (any, error) { v, err := fn(); return v, err },
		resp: resp,
	}
	r := <-resp
	if r.err != nil {
		var zero T
		return zero, r.err
	}
	return r.v.(T), nil
}

// ptraceGetSigInfo fetches the siginfo of the signal that stopped the
// tracee. x/sys/unix has no wrapper for PTRACE_GETSIGINFO, so this is
// the one raw ptrace invocation in the package. Must run on the
// tracee's ptrace worker thread like every other tracing call.
func ptraceGetSigInfo(pid int, info *unix.Siginfo) error {
	_, _, errno := unix.Syscall6(
		unix.SYS_PTRACE,
		unix.PTRACE_GETSIGINFO,
		uintptr(pid),
		0,
		uintptr(unsafe.Pointer(info)),
		0, 0,
	)
	if errno != 0 {
		return errno
	}
	return nil
}

func runOnErr(w *ptraceWorker, fn func() error) error {
	_, err := runOn(w, func() (struct{}, error) {
		if err := fn(); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	return err
}
