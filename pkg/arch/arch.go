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

// Package arch provides the amd64 syscall calling convention and
// register access the ptrace-based traced-thread controller needs: pulling
// arguments out of a PtraceRegs, and writing a return value or instruction
// pointer back into one.
package arch

import "github.com/shadowsim/tracedthread/pkg/hostarch"

// SyscallArgument is one argument to a syscall, stored as the raw
// register value it arrived in. The accessor methods are named after the
// C type they convert to, exactly as gVisor's arch.SyscallArgument does,
// so call sites read as "arg.Int()" / "arg.Pointer()" rather than bare
// casts scattered through handler code.
type SyscallArgument struct {
	Value uintptr
}

// SyscallArguments is the full fixed-size argument vector of one syscall.
type SyscallArguments [6]SyscallArgument

// Pointer returns the hostarch.Addr representation of a pointer argument.
func (a SyscallArgument) Pointer() hostarch.Addr {
	return hostarch.Addr(a.Value)
}

// Int returns the int32 representation of a 32-bit signed argument.
func (a SyscallArgument) Int() int32 {
	return int32(a.Value)
}

// Uint returns the uint32 representation of a 32-bit unsigned argument.
func (a SyscallArgument) Uint() uint32 {
	return uint32(a.Value)
}

// Int64 returns the int64 representation of a 64-bit signed argument.
func (a SyscallArgument) Int64() int64 {
	return int64(a.Value)
}

// Uint64 returns the uint64 representation of a 64-bit unsigned argument.
func (a SyscallArgument) Uint64() uint64 {
	return uint64(a.Value)
}

// SizeT returns the uint representation of a size_t argument.
func (a SyscallArgument) SizeT() uint {
	return uint(a.Value)
}
