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

package tracedthread

import "github.com/shadowsim/tracedthread/pkg/arch"

// SyscallInfo describes one guest syscall at the moment of entry: its
// number and its six-argument ABI vector.
type SyscallInfo struct {
	Number uintptr
	Args   arch.SyscallArguments
}

// resultKind distinguishes the three outcomes a Handler may return.
type resultKind int

const (
	resultBlocked resultKind = iota
	resultDone
	resultNative
)

// Result is the syscall handler's verdict for one syscall: block the
// thread, substitute a return value, or let the syscall run natively.
type Result struct {
	kind  resultKind
	value uint64
}

// Blocked means the simulator must suspend this thread; Resume returns
// without continuing the guest, which remains stopped at syscall-entry.
func Blocked() Result { return Result{kind: resultBlocked} }

// Done means the syscall must not actually run; the guest instead
// observes v as the syscall's return value.
func Done(v uint64) Result { return Result{kind: resultDone, value: v} }

// Native means the syscall should be allowed to run unmodified on the
// host kernel.
func Native() Result { return Result{kind: resultNative} }

// Handler is the external collaborator that decides the outcome of each
// guest syscall. It is invoked exactly once per guest syscall, at
// syscall-entry, and may use BorrowRead/CloneRead/StageWrite against the
// same TracedThread to inspect or populate guest memory before
// returning its verdict.
type Handler interface {
	Handle(t *TracedThread, sc SyscallInfo) Result
}
