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
	"bytes"
	"math/bits"

	"golang.org/x/sys/unix"

	"github.com/shadowsim/tracedthread/pkg/hostarch"
)

// rdtsc is the two-byte x86 opcode for RDTSC.
var rdtsc = []byte{0x0f, 0x31}

// rdtscp is the three-byte x86 opcode for RDTSCP.
var rdtscp = []byte{0x0f, 0x01, 0xf9}

// opcodeProbeLen is how many bytes at the faulting PC the trap emulator
// inspects, enough to cover either a bare RDTSC or an RDTSCP plus
// prefix bytes.
const opcodeProbeLen = 16

// safeProbeLen clamps opcodeProbeLen so the probe read at addr never
// crosses into the page after the one addr starts on: the page
// containing the faulting instruction is mapped and executable by
// definition, but the same is not true of whatever comes after it, and
// a bare RDTSC can legitimately sit in the last two bytes of a page.
func safeProbeLen(addr hostarch.Addr) int {
	pageEnd, ok := addr.RoundDown().AddLength(hostarch.PageSize)
	if !ok || pageEnd <= addr {
		return opcodeProbeLen
	}
	if avail := int(pageEnd - addr); avail < opcodeProbeLen {
		return avail
	}
	return opcodeProbeLen
}

// defaultCyclesPerSecond is the cycle-counter frequency used when the
// caller doesn't calibrate TracedThread.CyclesPerSecond itself.
const defaultCyclesPerSecond = 2_000_000_000

// emulateCycleCounter inspects the bytes at a SIGSEGV fault site for a
// cycle-counter instruction and, if found, emulates it in place. It
// returns true if the bytes at the fault site matched and the
// fault was consumed (regs has been updated in place with the emulated
// result and an advanced program counter); false means the fault is not
// ours and must be forwarded to the guest.
func emulateCycleCounter(regs *unix.PtraceRegs, opcode []byte, simulatedTimeNanos int64, cyclesPerSecond uint64) bool {
	cycles := cyclesFromTime(simulatedTimeNanos, cyclesPerSecond)

	switch {
	case bytes.HasPrefix(opcode, rdtscp):
		depositCycles(regs, cycles)
		regs.Rcx = 0 // processor ID, unmodeled.
		regs.Rip += uint64(len(rdtscp))
		return true

	case bytes.HasPrefix(opcode, rdtsc):
		depositCycles(regs, cycles)
		regs.Rip += uint64(len(rdtsc))
		return true

	default:
		return false
	}
}

// cyclesFromTime computes floor(simulatedTimeNanos * cyclesPerSecond / 1e9)
// through a 128-bit intermediate product, so neither the precision loss
// of a floating-point cyclesPerNanosecond nor 64-bit overflow of the
// product distorts it. A quotient too large for 64 bits saturates.
func cyclesFromTime(simulatedTimeNanos int64, cyclesPerSecond uint64) uint64 {
	if simulatedTimeNanos < 0 {
		return 0
	}
	hi, lo := bits.Mul64(uint64(simulatedTimeNanos), cyclesPerSecond)
	if hi >= 1_000_000_000 {
		return ^uint64(0)
	}
	q, _ := bits.Div64(hi, lo, 1_000_000_000)
	return q
}

// depositCycles writes a 64-bit cycle count into the RDTSC/RDTSCP
// calling convention: low 32 bits in EAX, high 32 bits in EDX.
func depositCycles(regs *unix.PtraceRegs, cycles uint64) {
	regs.Rax = uint64(uint32(cycles))
	regs.Rdx = uint64(uint32(cycles >> 32))
}
