// Copyright 2018 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build linux && amd64

package tracedthread

import (
	"fmt"
	"os/exec"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// forkLock serializes spawn against concurrent callers, the same
// purpose syscall.ForkLock serves for os/exec: savedSigMask is a single
// package-level slot, and only one fork may be in flight across it at a
// time.
var forkLock sync.Mutex

// sigsetSize is the kernel's sigset_t size on amd64 (64 signals, one
// 64-bit word).
const sigsetSize = 8

// savedSigMask holds the signal mask beforeFork displaced, for afterFork
// to restore. A package-level slot, not a parameter or return value, so
// nothing has to cross the fork boundary by value — matching gVisor's
// own argument-less beforeFork/afterFork pair in forkStub.
var savedSigMask uint64

// fullSigMask is prepared once, outside the fork window, so beforeFork
// has nothing to allocate or compute.
var fullSigMask = ^uint64(0)

// beforeFork blocks every signal, so the fork's single remaining thread
// can't take a signal mid-clone while the rest of the runtime's threads
// are frozen mid-something-else.
//
//go:norace
func beforeFork() {
	unix.RawSyscall6(unix.SYS_RT_SIGPROCMASK, unix.SIG_SETMASK,
		uintptr(unsafe.Pointer(&fullSigMask)), uintptr(unsafe.Pointer(&savedSigMask)), sigsetSize, 0, 0)
}

// afterFork restores the signal mask beforeFork replaced.
//
//go:norace
func afterFork() {
	unix.RawSyscall6(unix.SYS_RT_SIGPROCMASK, unix.SIG_SETMASK,
		uintptr(unsafe.Pointer(&savedSigMask)), 0, sigsetSize, 0, 0)
}

// spawn forks a child, has it disable its own cycle counter, become a
// tracee, and stop itself for the tracer to attach to before it execs
// argv[0].
//
// This cannot be built on os/exec's ordinary SysProcAttr{Ptrace: true}
// path: that path has no hook to run PR_SET_TSC between fork and exec,
// and the child must disable its cycle counter before anything —
// including the dynamic loader — runs RDTSC. So, as gVisor's own stub
// launcher does for its own reasons, spawn forks and execs by hand with
// raw syscalls.
//
// Precondition: the runtime OS thread must be locked for the duration
// of the fork; spawn locks and unlocks it itself.
func spawn(argv, envp []string) (int, error) {
	resolved, err := exec.LookPath(argv[0])
	if err != nil {
		return 0, fmt.Errorf("%w: resolve %q: %v", ErrFatalHost, argv[0], err)
	}

	// Every pointer the child touches after the fork must be prepared
	// now: nothing may allocate between the fork and the execve.
	pathPtr, err := unix.BytePtrFromString(resolved)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrFatalHost, err)
	}
	argvPtr, err := bytePtrsFromStrings(argv)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrFatalHost, err)
	}
	envPtr, err := bytePtrsFromStrings(envp)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrFatalHost, err)
	}

	forkLock.Lock()
	defer forkLock.Unlock()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	pid, err := forkAndExecInChild(pathPtr, argvPtr, envPtr)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrFatalHost, err)
	}
	return pid, nil
}

// forkAndExecInChild does the fork and, in the child branch, never
// returns: it falls through into childExec and then unconditionally
// exits. In the parent branch it returns the child's pid.
//
// In the child, this function must not acquire any locks, because they
// might have been locked at the time of the fork. This means no
// rescheduling, no malloc calls, and no new stack segments, hence no
// race instrumentation.
//
//go:norace
func forkAndExecInChild(pathPtr *byte, argvPtr, envPtr []*byte) (int, error) {
	var (
		pid   uintptr
		errno unix.Errno
	)

	// beforeFork masks all signals so a handler running in the
	// momentarily single-threaded child can't observe half-initialized
	// runtime state belonging to some other goroutine's thread.
	beforeFork()

	pid, _, errno = unix.RawSyscall(unix.SYS_CLONE, uintptr(unix.SIGCHLD), 0, 0)
	if errno != 0 {
		afterFork()
		return 0, errno
	}

	if pid != 0 {
		afterFork()
		return int(pid), nil
	}

	// Child. afterFork restores the signal mask to its pre-fork state;
	// everything from here on runs with normal signal delivery, as the
	// traced program expects.
	afterFork()
	childExec(pathPtr, argvPtr, envPtr)
	panic("unreachable")
}

// childExec runs the child side of the launch sequence, in order:
// disable the cycle counter, become a tracee, stop for the tracer, then
// exec. Any failure exits with the errno that caused it; there is no
// other way to report an error from here.
//
//go:norace
func childExec(pathPtr *byte, argvPtr, envPtr []*byte) {
	if _, _, errno := unix.RawSyscall6(unix.SYS_PRCTL, unix.PR_SET_TSC, unix.PR_TSC_SIGSEGV, 0, 0, 0, 0); errno != 0 {
		exitChild(errno)
	}

	if _, _, errno := unix.RawSyscall6(unix.SYS_PTRACE, unix.PTRACE_TRACEME, 0, 0, 0, 0, 0); errno != 0 {
		exitChild(errno)
	}

	self, _, errno := unix.RawSyscall(unix.SYS_GETPID, 0, 0, 0)
	if errno != 0 {
		exitChild(errno)
	}
	if _, _, errno := unix.RawSyscall(unix.SYS_KILL, self, uintptr(unix.SIGSTOP), 0); errno != 0 {
		exitChild(errno)
	}

	_, _, errno = unix.RawSyscall(unix.SYS_EXECVE,
		uintptr(unsafe.Pointer(pathPtr)),
		uintptr(unsafe.Pointer(&argvPtr[0])),
		uintptr(unsafe.Pointer(&envPtr[0])))
	exitChild(errno)
}

func exitChild(errno unix.Errno) {
	unix.RawSyscall(unix.SYS_EXIT, uintptr(errno), 0, 0)
}

// bytePtrsFromStrings converts ss into a NUL-terminated, nil-terminated
// char** suitable for execve, the same shape syscall.SlicePtrFromStrings
// builds for os/exec.
func bytePtrsFromStrings(ss []string) ([]*byte, error) {
	ptrs := make([]*byte, 0, len(ss)+1)
	for _, s := range ss {
		p, err := unix.BytePtrFromString(s)
		if err != nil {
			return nil, err
		}
		ptrs = append(ptrs, p)
	}
	return append(ptrs, nil), nil
}
