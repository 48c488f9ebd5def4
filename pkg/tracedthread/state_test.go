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
	"errors"
	"testing"

	"golang.org/x/sys/unix"
)

// The following helpers build raw wait(2) status words following the
// encoding golang.org/x/sys/unix.WaitStatus itself decodes: bits 0-6 the
// terminating signal (0 on normal exit, 0x7f while stopped), bits 8-15
// the exit code or the stop signal, and for SIGTRAP stops bits 16-23 the
// ptrace event.

func exitedStatus(code int) unix.WaitStatus {
	return unix.WaitStatus(code << 8)
}

func signaledStatus(sig unix.Signal) unix.WaitStatus {
	return unix.WaitStatus(sig)
}

func stoppedStatus(sig unix.Signal) unix.WaitStatus {
	return unix.WaitStatus(0x7f | (int(sig) << 8))
}

func ptraceEventStatus(sig unix.Signal, event int) unix.WaitStatus {
	return unix.WaitStatus(0x7f | (int(sig) << 8) | (event << 16))
}

func TestClassifyTraceMe(t *testing.T) {
	ev, err := classify(stateNone, stoppedStatus(unix.SIGSTOP))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if ev.state != stateTraceMe {
		t.Errorf("state = %v, want %v", ev.state, stateTraceMe)
	}
}

func TestClassifySigstopAfterAttachIsSignalled(t *testing.T) {
	// A SIGSTOP after the thread has already attached is an ordinary
	// signal stop, not another trace-me transition.
	ev, err := classify(stateSyscallPost, stoppedStatus(unix.SIGSTOP))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if ev.state != stateSignalled || ev.signal != unix.SIGSTOP {
		t.Errorf("got state=%v signal=%v, want signalled/SIGSTOP", ev.state, ev.signal)
	}
}

func TestClassifyExec(t *testing.T) {
	ev, err := classify(stateSyscallPre, ptraceEventStatus(unix.SIGTRAP, unix.PTRACE_EVENT_EXEC))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if ev.state != stateExec {
		t.Errorf("state = %v, want %v", ev.state, stateExec)
	}
}

func TestClassifySyscallPreThenPost(t *testing.T) {
	pre, err := classify(stateTraceMe, stoppedStatus(syscallStopSignal))
	if err != nil {
		t.Fatalf("classify pre: %v", err)
	}
	if pre.state != stateSyscallPre {
		t.Errorf("first syscall stop = %v, want syscall-pre", pre.state)
	}

	post, err := classify(pre.state, stoppedStatus(syscallStopSignal))
	if err != nil {
		t.Fatalf("classify post: %v", err)
	}
	if post.state != stateSyscallPost {
		t.Errorf("second syscall stop = %v, want syscall-post", post.state)
	}

	next, err := classify(post.state, stoppedStatus(syscallStopSignal))
	if err != nil {
		t.Fatalf("classify next pre: %v", err)
	}
	if next.state != stateSyscallPre {
		t.Errorf("third syscall stop = %v, want syscall-pre again", next.state)
	}
}

func TestClassifyExited(t *testing.T) {
	ev, err := classify(stateSyscallPost, exitedStatus(42))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if ev.state != stateExited || ev.returnCode != 42 {
		t.Errorf("got state=%v code=%d, want exited/42", ev.state, ev.returnCode)
	}
}

func TestClassifyKilledBySignal(t *testing.T) {
	ev, err := classify(stateSyscallPre, signaledStatus(unix.SIGKILL))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if ev.state != stateExited || ev.returnCode != -int(unix.SIGKILL) {
		t.Errorf("got state=%v code=%d, want exited/%d", ev.state, ev.returnCode, -int(unix.SIGKILL))
	}
}

func TestClassifyUnrecognizedIsProtocolViolation(t *testing.T) {
	_, err := classify(stateSyscallPre, unix.WaitStatus(0xffff))
	if !errors.Is(err, ErrProtocolViolation) {
		t.Errorf("got err=%v, want ErrProtocolViolation", err)
	}
}

func TestChildStateIsRunning(t *testing.T) {
	for _, s := range []ChildState{stateTraceMe, stateSyscallPre, stateSyscallPost, stateSignalled, stateExec} {
		if !s.isRunning() {
			t.Errorf("%v.isRunning() = false, want true", s)
		}
	}
	for _, s := range []ChildState{stateNone, stateExited} {
		if s.isRunning() {
			t.Errorf("%v.isRunning() = true, want false", s)
		}
	}
}
