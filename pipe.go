package sdb

import "golang.org/x/sys/unix"

// pipe is an optionally close-on-exec byte pipe. Its write end can be
// handed to LaunchProcess as the inferior's stdout so the parent reads
// what the inferior printed. Pre-exec launch failures do not travel
// through it: os/exec reports those from cmd.Start.
type pipe struct {
	read, write int
}

func newPipe(closeOnExec bool) (*pipe, error) {
	var fds [2]int
	flags := 0
	if closeOnExec {
		flags = unix.O_CLOEXEC
	}
	if err := unix.Pipe2(fds[:], flags); err != nil {
		return nil, newErr(KindLaunchFailed, "pipe", err)
	}
	return &pipe{read: fds[0], write: fds[1]}, nil
}

func (p *pipe) closeRead() {
	if p.read != -1 {
		unix.Close(p.read)
		p.read = -1
	}
}

func (p *pipe) closeWrite() {
	if p.write != -1 {
		unix.Close(p.write)
		p.write = -1
	}
}

func (p *pipe) close() {
	p.closeRead()
	p.closeWrite()
}

func (p *pipe) releaseRead() int {
	fd := p.read
	p.read = -1
	return fd
}

func (p *pipe) releaseWrite() int {
	fd := p.write
	p.write = -1
	return fd
}

func (p *pipe) readAll() ([]byte, error) {
	buf := make([]byte, 1024)
	n, err := unix.Read(p.read, buf)
	if err != nil {
		return nil, newErr(KindLaunchFailed, "pipe.read", err)
	}
	return buf[:n], nil
}
