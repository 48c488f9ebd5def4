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

package arch

import "golang.org/x/sys/unix"

// SyscallNo returns the syscall number a syscall-entry stop trapped on,
// read from orig_rax. SetInvalidSyscall overwrites orig_rax, so after it
// has run SyscallNo reports -1 rather than the guest's original number.
func SyscallNo(regs *unix.PtraceRegs) uintptr {
	return uintptr(regs.Orig_rax)
}

// SyscallArgs extracts the six-argument ABI gVisor's own arch_amd64.go
// documents: rdi, rsi, rdx, r10, r8, r9.
func SyscallArgs(regs *unix.PtraceRegs) SyscallArguments {
	return SyscallArguments{
		{Value: uintptr(regs.Rdi)},
		{Value: uintptr(regs.Rsi)},
		{Value: uintptr(regs.Rdx)},
		{Value: uintptr(regs.R10)},
		{Value: uintptr(regs.R8)},
		{Value: uintptr(regs.R9)},
	}
}

// Return returns the syscall return-value register.
func Return(regs *unix.PtraceRegs) uintptr {
	return uintptr(regs.Rax)
}

// SetReturn sets the syscall return-value register.
func SetReturn(regs *unix.PtraceRegs, value uint64) {
	regs.Rax = value
}

// SetInvalidSyscall rewrites the syscall number so that, when the guest
// is continued, the kernel rejects the call cheaply instead of actually
// performing it. Used when the syscall mediator has already decided the
// result (see the syscall mediator's "done" case).
func SetInvalidSyscall(regs *unix.PtraceRegs) {
	regs.Orig_rax = ^uint64(0) // -1: no syscall has this number.
}

// IP returns the current instruction pointer.
func IP(regs *unix.PtraceRegs) uint64 {
	return regs.Rip
}

// SetIP sets the current instruction pointer.
func SetIP(regs *unix.PtraceRegs, value uint64) {
	regs.Rip = value
}
