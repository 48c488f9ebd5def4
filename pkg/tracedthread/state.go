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

//go:build linux

package tracedthread

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// ChildState is the stop classifier's output: a summary of why the
// traced task most recently transferred control back to us.
type ChildState int

const (
	// stateNone is the zero value, before the thread has observed its
	// first stop.
	stateNone ChildState = iota
	// stateTraceMe is the initial attach stop, right after the child
	// raised SIGSTOP following PTRACE_TRACEME.
	stateTraceMe
	// stateSyscallPre is a syscall-entry stop.
	stateSyscallPre
	// stateSyscallPost is a syscall-exit stop.
	stateSyscallPost
	// stateExec is a post-execve stop (PTRACE_EVENT_EXEC).
	stateExec
	// stateSignalled is a stop caused by an arbitrary signal other than
	// the syscall marker.
	stateSignalled
	// stateExited is terminal: the task is gone.
	stateExited
)

// String implements fmt.Stringer.
func (s ChildState) String() string {
	switch s {
	case stateNone:
		return "none"
	case stateTraceMe:
		return "trace-me"
	case stateSyscallPre:
		return "syscall-pre"
	case stateSyscallPost:
		return "syscall-post"
	case stateExec:
		return "exec"
	case stateSignalled:
		return "signalled"
	case stateExited:
		return "exited"
	default:
		return fmt.Sprintf("ChildState(%d)", int(s))
	}
}

// syscallStopSignal is SIGTRAP with the PTRACE_O_TRACESYSGOOD marker bit
// set, as documented for PTRACE_SYSCALL stops in `man 2 ptrace`.
const syscallStopSignal = unix.SIGTRAP | 0x80

// stopEvent is what the stop classifier extracted from one wait status.
type stopEvent struct {
	state ChildState

	// signal is set when state == stateSignalled.
	signal unix.Signal

	// returnCode is set when state == stateExited and mirrors
	// TracedThread.ReturnCode's contract (non-negative exit status, or a
	// negative value for termination by signal).
	returnCode int
}

// classify turns a raw wait status into a stopEvent. prev is the state
// the thread was in before this wait; it disambiguates a syscall-stop
// into pre vs. post and recognizes the one legitimate trace-me
// transition (the very first stop).
func classify(prev ChildState, ws unix.WaitStatus) (stopEvent, error) {
	switch {
	case ws.Signaled():
		return stopEvent{state: stateExited, returnCode: -int(ws.Signal())}, nil

	case ws.Exited():
		return stopEvent{state: stateExited, returnCode: ws.ExitStatus()}, nil

	case !ws.Stopped():
		return stopEvent{}, fmt.Errorf("%w: unrecognized wait status %#x", ErrProtocolViolation, ws)
	}

	signal := ws.StopSignal()

	if signal == unix.SIGSTOP && prev == stateNone {
		return stopEvent{state: stateTraceMe}, nil
	}

	if signal == unix.SIGTRAP && ws.TrapCause() == unix.PTRACE_EVENT_EXEC {
		return stopEvent{state: stateExec}, nil
	}

	if signal == syscallStopSignal {
		if prev == stateSyscallPre || prev == stateExec {
			return stopEvent{state: stateSyscallPost}, nil
		}
		return stopEvent{state: stateSyscallPre}, nil
	}

	return stopEvent{state: stateSignalled, signal: signal}, nil
}

// isRunning reports whether s is one of the states in which the guest
// still exists and may be resumed.
func (s ChildState) isRunning() bool {
	switch s {
	case stateTraceMe, stateSyscallPre, stateSyscallPost, stateSignalled, stateExec:
		return true
	default:
		return false
	}
}
