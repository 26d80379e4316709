package sdb

// syscallNameToID and syscallIDToName cover the x86-64 Linux syscall
// table entries a debugging session is most likely to need to name —
// the catchpoint CLI surface ("catchpoint syscall write,read") and
// SyscallInfo pretty-printing both go through these. Extending the
// table to the full ABI is mechanical and left for when a concrete
// syscall is missing; the process controller itself only ever needs
// the numeric id, never the name.
var syscallNameToID = map[string]int{
	"read": 0, "write": 1, "open": 2, "close": 3, "stat": 4, "fstat": 5,
	"lstat": 6, "poll": 7, "lseek": 8, "mmap": 9, "mprotect": 10,
	"munmap": 11, "brk": 12, "rt_sigaction": 13, "rt_sigprocmask": 14,
	"ioctl": 16, "pread64": 17, "pwrite64": 18, "readv": 19, "writev": 20,
	"access": 21, "pipe": 22, "select": 23, "dup": 32, "dup2": 33,
	"pause": 34, "nanosleep": 35, "socket": 41, "connect": 42,
	"accept": 43, "sendto": 44, "recvfrom": 45, "bind": 49, "listen": 50,
	"clone": 56, "fork": 57, "vfork": 58, "execve": 59, "exit": 60,
	"wait4": 61, "kill": 62, "fcntl": 72, "ptrace": 101,
	"getpid": 39, "gettid": 186, "getuid": 102, "geteuid": 107,
	"mkdir": 83, "rmdir": 84, "unlink": 87, "readlink": 89,
	"chdir": 80, "rename": 82, "openat": 257, "mkdirat": 258,
	"exit_group": 231, "futex": 202, "set_robust_list": 273,
	"arch_prctl": 158, "sigaltstack": 131, "prlimit64": 302,
	"getrandom": 318, "pipe2": 293,
}

var syscallIDToName = buildSyscallIDToName()

func buildSyscallIDToName() map[int]string {
	m := make(map[int]string, len(syscallNameToID))
	for name, id := range syscallNameToID {
		m[id] = name
	}
	return m
}

// SyscallNameToID resolves a syscall by name, returning false if it is
// not in the table.
func SyscallNameToID(name string) (int, bool) {
	id, ok := syscallNameToID[name]
	return id, ok
}

// SyscallIDToName resolves a syscall number to its conventional name,
// or "" if it is not in the table.
func SyscallIDToName(id int) string {
	return syscallIDToName[id]
}
