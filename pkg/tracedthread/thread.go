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

// Package tracedthread implements the traced-thread controller: it
// launches a guest process, attaches as its ptrace tracer, and mediates
// every syscall the guest makes so a simulator can substitute emulated
// results for real kernel behavior.
package tracedthread

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"golang.org/x/sys/unix"

	"github.com/shadowsim/tracedthread/pkg/arch"
	"github.com/shadowsim/tracedthread/pkg/hostarch"
	"github.com/shadowsim/tracedthread/pkg/log"
)

// Clock supplies the simulated time the trap emulator stamps
// cycle-counter reads with, so a discrete-event simulator driving the
// thread can control the emulated clock instead of wall time.
type Clock interface {
	// Now returns nanoseconds since the start of the simulation.
	Now() int64
}

// TracedThread is a single logical traced-process controller: one guest
// thread, one ptrace tracer relationship, one memory window. It is not
// safe for concurrent use; the tracer and tracee alternate strictly,
// with no internal parallelism.
type TracedThread struct {
	handler Handler
	clock   Clock

	// CyclesPerSecond calibrates the emulated cycle counter. Defaults to
	// defaultCyclesPerSecond.
	CyclesPerSecond uint64

	pid   int
	state ChildState
	mem   *memoryWindow

	regs          unix.PtraceRegs
	syscallResult *Result

	pendingWrites []pendingWrite
	tempReads     [][]byte

	signalToDeliver unix.Signal

	returnCode int
}

// New returns a TracedThread that will dispatch syscalls to handler and
// stamp cycle-counter reads using clock.
func New(handler Handler, clock Clock) *TracedThread {
	return &TracedThread{
		handler:         handler,
		clock:           clock,
		CyclesPerSecond: defaultCyclesPerSecond,
		state:           stateNone,
	}
}

// Run spawns the child, observes the attach stop, then hands off to
// Resume.
func (t *TracedThread) Run(argv, envp []string) error {
	pid, err := spawn(argv, envp)
	if err != nil {
		return err
	}
	t.pid = pid
	log.Infof("traced thread: started pid %d: %v", pid, argv)

	if err := t.nextChildState(); err != nil {
		return err
	}
	return t.Resume()
}

// Resume is the controller's driver loop: continue the guest, wait for
// its next stop, and repeat until it blocks on a handler decision or
// exits.
func (t *TracedThread) Resume() error {
	for {
		switch t.state {
		case stateSyscallPre:
			if t.syscallResult != nil {
				switch t.syscallResult.kind {
				case resultBlocked:
					return nil
				case resultDone:
					// The handler resolved this syscall, whether at entry
					// or after a block/resolve round trip through
					// SetSyscallResult. Either way orig_rax must be
					// clobbered here, in the resume loop, since a
					// block-then-resolve never re-enters enterSyscallPre.
					if err := t.getRegs(); err != nil {
						return err
					}
					arch.SetInvalidSyscall(&t.regs)
					if err := t.setRegs(); err != nil {
						return err
					}
				}
			}
		case stateExited:
			return nil
		}

		// Drain the temporary-reads list; release each buffer. Iterated
		// over its own length, not the pending-writes list's — the two
		// lists can have different lengths across a single Resume call.
		t.tempReads = t.tempReads[:0]

		// Drain the pending-writes list.
		for _, w := range t.pendingWrites {
			if err := t.mem.write(w.addr, w.buf); err != nil {
				return err
			}
		}
		if len(t.pendingWrites) > 0 {
			t.pendingWrites = t.pendingWrites[:0]
			t.mem.dirty = true
		}

		if t.mem.dirty {
			if err := t.mem.flush(); err != nil {
				return err
			}
		}

		if err := unix.PtraceSyscall(t.pid, int(t.signalToDeliver)); err != nil {
			return fmt.Errorf("%w: PTRACE_SYSCALL on pid %d: %v", ErrFatalHost, t.pid, err)
		}
		t.signalToDeliver = 0

		if err := t.nextChildState(); err != nil {
			return err
		}
	}
}

// IsRunning reports whether the guest still exists and may be resumed.
func (t *TracedThread) IsRunning() bool {
	return t.state.isRunning()
}

// Terminate asks the guest to stop, if it hasn't already exited, and
// collects the exit.
func (t *TracedThread) Terminate() error {
	if !t.IsRunning() {
		return nil
	}

	var wstatus unix.WaitStatus
	wpid, err := unix.Wait4(t.pid, &wstatus, unix.WNOHANG, nil)
	if err != nil {
		return fmt.Errorf("%w: non-blocking wait on pid %d: %v", ErrFatalHost, t.pid, err)
	}
	if wpid == 0 {
		// Still alive: ask it to stop, then poll briefly for the kernel
		// to actually deliver it before collecting the exit, mirroring
		// runsc/sandbox/sandbox.go's backoff.Retry around a liveness
		// check.
		log.Debugf("traced thread: sending SIGTERM to pid %d", t.pid)
		if err := unix.Kill(t.pid, unix.SIGTERM); err != nil {
			return fmt.Errorf("%w: SIGTERM to pid %d: %v", ErrFatalHost, t.pid, err)
		}
		b := backoff.WithMaxRetries(backoff.NewConstantBackOff(10*time.Millisecond), 50)
		if err := backoff.Retry(func() error {
			var ws unix.WaitStatus
			wpid, err := unix.Wait4(t.pid, &ws, unix.WNOHANG, nil)
			if err != nil {
				return backoff.Permanent(fmt.Errorf("%w: wait on pid %d: %v", ErrFatalHost, t.pid, err))
			}
			if wpid == 0 {
				return fmt.Errorf("pid %d still running", t.pid)
			}
			wstatus = ws
			return nil
		}, b); err != nil {
			return err
		}
		t.applyTerminalStatus(wstatus)
	} else if wstatus.Exited() || wstatus.Signaled() {
		t.applyTerminalStatus(wstatus)
	}
	return nil
}

// ReturnCode returns the guest's exit status, or the negated signal
// number that killed it.
func (t *TracedThread) ReturnCode() int {
	return t.returnCode
}

// SetSyscallResult lets the handler resolve the current syscall
// immediately instead of returning Done from Handle.
func (t *TracedThread) SetSyscallResult(v uint64) {
	if t.state != stateSyscallPre {
		panic("tracedthread: SetSyscallResult called outside syscall-pre")
	}
	r := Done(v)
	t.syscallResult = &r
}

// BorrowRead returns a controller-owned copy of n bytes of guest memory
// at addr, valid only until the next Resume call.
func (t *TracedThread) BorrowRead(addr hostarch.Addr, n int) ([]byte, error) {
	buf, err := t.mem.read(addr, n)
	if err != nil {
		return nil, err
	}
	t.tempReads = append(t.tempReads, buf)
	return buf, nil
}

// CloneRead returns an owned copy of n bytes of guest memory at addr.
// The caller is responsible for its lifetime; Resume does not release it.
func (t *TracedThread) CloneRead(addr hostarch.Addr, n int) ([]byte, error) {
	return t.mem.read(addr, n)
}

// StageWrite returns a controller-owned buffer of n bytes that the
// handler fills in; its contents are copied into the guest at addr on
// the next Resume, then released.
func (t *TracedThread) StageWrite(addr hostarch.Addr, n int) []byte {
	buf := make([]byte, n)
	t.pendingWrites = append(t.pendingWrites, pendingWrite{addr: addr, buf: buf})
	return buf
}

// nextChildState waits for the traced task to stop, classifies the wait
// status, and dispatches into the appropriate state handler. It is the
// sole writer of t.state outside of New and Terminate's terminal
// bookkeeping.
func (t *TracedThread) nextChildState() error {
	var wstatus unix.WaitStatus
	wpid, err := unix.Wait4(t.pid, &wstatus, 0, nil)
	if err != nil {
		return fmt.Errorf("%w: wait4 pid %d: %v", ErrFatalHost, t.pid, err)
	}
	if wpid != t.pid {
		return fmt.Errorf("%w: wait4 returned pid %d, expected %d", ErrProtocolViolation, wpid, t.pid)
	}

	if wstatus.Exited() || wstatus.Signaled() {
		t.applyTerminalStatus(wstatus)
		return nil
	}

	ev, err := classify(t.state, wstatus)
	if err != nil {
		return err
	}

	prev := t.state
	t.state = ev.state
	log.Debugf("traced thread: pid %d state %s -> %s", t.pid, prev, t.state)

	switch ev.state {
	case stateTraceMe:
		return t.enterTraceMe()
	case stateExec:
		return t.enterExec()
	case stateSyscallPre:
		return t.enterSyscallPre()
	case stateSyscallPost:
		return t.enterSyscallPost()
	case stateSignalled:
		return t.enterSignalled(ev.signal)
	}
	return nil
}

func (t *TracedThread) applyTerminalStatus(wstatus unix.WaitStatus) {
	t.state = stateExited
	if wstatus.Signaled() {
		t.returnCode = -int(wstatus.Signal())
		log.Debugf("traced thread: pid %d terminated by signal %d", t.pid, wstatus.Signal())
		return
	}
	t.returnCode = wstatus.ExitStatus()
	log.Debugf("traced thread: pid %d exited with status %d", t.pid, t.returnCode)
}

// enterTraceMe runs the side effects of the first attach stop: install
// tracer options and open the memory window.
func (t *TracedThread) enterTraceMe() error {
	opts := unix.PTRACE_O_EXITKILL | unix.PTRACE_O_TRACESYSGOOD | unix.PTRACE_O_TRACEEXEC
	if err := unix.PtraceSetOptions(t.pid, opts); err != nil {
		return fmt.Errorf("%w: PTRACE_SETOPTIONS pid %d: %v", ErrFatalHost, t.pid, err)
	}
	mem, err := openMemoryWindow(t.pid)
	if err != nil {
		return err
	}
	t.mem = mem
	return nil
}

// enterExec re-opens the memory window whenever the traced process
// performs a successful exec, since the old fd still refers to the
// pre-exec image.
func (t *TracedThread) enterExec() error {
	return t.mem.reopen(t.pid)
}

// enterSyscallPre is the syscall-entry half: read registers, assemble
// the descriptor, invoke the handler exactly once. It never installs the
// invalid-syscall number itself: a Done verdict may arrive later, via
// SetSyscallResult, after Resume has already returned for a Blocked
// verdict and enterSyscallPre will not run again for this syscall. That
// install happens in Resume instead, which runs on every pass through
// syscall-pre regardless of how the verdict was produced.
func (t *TracedThread) enterSyscallPre() error {
	if err := t.getRegs(); err != nil {
		return err
	}
	sc := SyscallInfo{
		Number: arch.SyscallNo(&t.regs),
		Args:   arch.SyscallArgs(&t.regs),
	}
	result := t.handler.Handle(t, sc)
	t.syscallResult = &result
	return nil
}

// enterSyscallPost is the syscall-exit half.
func (t *TracedThread) enterSyscallPost() error {
	if t.syscallResult != nil && t.syscallResult.kind == resultDone {
		if err := t.getRegs(); err != nil {
			return err
		}
		arch.SetReturn(&t.regs, t.syscallResult.value)
		if err := t.setRegs(); err != nil {
			return err
		}
	}
	t.syscallResult = nil
	return nil
}

// enterSignalled emulates and consumes segfaults caused by the disabled
// cycle counter; everything else is queued for delivery on the next
// continue.
func (t *TracedThread) enterSignalled(signal unix.Signal) error {
	if signal != unix.SIGSEGV {
		log.Warningf("traced thread: pid %d delivering signal %d", t.pid, signal)
		t.signalToDeliver = signal
		return nil
	}

	if err := t.getRegs(); err != nil {
		return err
	}
	ip := hostarch.Addr(arch.IP(&t.regs))
	opcode, err := t.BorrowRead(ip, safeProbeLen(ip))
	if err != nil {
		return err
	}
	now := t.clock.Now()
	if emulateCycleCounter(&t.regs, opcode, now, t.CyclesPerSecond) {
		return t.setRegs()
	}

	log.Warningf("traced thread: pid %d unhandled SIGSEGV at %#x: % x", t.pid, arch.IP(&t.regs), opcode)
	t.signalToDeliver = signal
	return nil
}

func (t *TracedThread) getRegs() error {
	if err := unix.PtraceGetRegs(t.pid, &t.regs); err != nil {
		return fmt.Errorf("%w: PTRACE_GETREGS pid %d: %v", ErrFatalHost, t.pid, err)
	}
	return nil
}

func (t *TracedThread) setRegs() error {
	if err := unix.PtraceSetRegs(t.pid, &t.regs); err != nil {
		return fmt.Errorf("%w: PTRACE_SETREGS pid %d: %v", ErrFatalHost, t.pid, err)
	}
	return nil
}
