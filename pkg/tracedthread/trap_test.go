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
	"testing"

	"golang.org/x/sys/unix"

	"github.com/shadowsim/tracedthread/pkg/hostarch"
)

func TestCyclesFromTime(t *testing.T) {
	if got, want := cyclesFromTime(1_000_000_000, defaultCyclesPerSecond), uint64(defaultCyclesPerSecond); got != want {
		t.Errorf("cyclesFromTime(1s) = %d, want %d", got, want)
	}
	if got := cyclesFromTime(500_000_000, defaultCyclesPerSecond); got != defaultCyclesPerSecond/2 {
		t.Errorf("cyclesFromTime(0.5s) = %d, want %d", got, defaultCyclesPerSecond/2)
	}
	if got := cyclesFromTime(-1, defaultCyclesPerSecond); got != 0 {
		t.Errorf("cyclesFromTime(negative) = %d, want 0", got)
	}
}

func TestDepositCycles(t *testing.T) {
	var regs unix.PtraceRegs
	depositCycles(&regs, 0x1_0000_0002)
	if regs.Rax != 2 {
		t.Errorf("Rax = %#x, want 2", regs.Rax)
	}
	if regs.Rdx != 1 {
		t.Errorf("Rdx = %#x, want 1", regs.Rdx)
	}
}

func TestEmulateCycleCounterRDTSC(t *testing.T) {
	regs := unix.PtraceRegs{Rip: 0x400000}
	opcode := append([]byte{0x0f, 0x31}, make([]byte, 14)...)

	if !emulateCycleCounter(&regs, opcode, 1_000_000_000, defaultCyclesPerSecond) {
		t.Fatal("emulateCycleCounter returned false for RDTSC opcode")
	}
	if regs.Rip != 0x400002 {
		t.Errorf("Rip = %#x, want 0x400002", regs.Rip)
	}
	if regs.Rax != uint64(uint32(defaultCyclesPerSecond)) {
		t.Errorf("Rax = %d, want %d", regs.Rax, uint32(defaultCyclesPerSecond))
	}
}

func TestEmulateCycleCounterRDTSCP(t *testing.T) {
	regs := unix.PtraceRegs{Rip: 0x400000, Rcx: 0xff}
	opcode := append([]byte{0x0f, 0x01, 0xf9}, make([]byte, 13)...)

	if !emulateCycleCounter(&regs, opcode, 0, defaultCyclesPerSecond) {
		t.Fatal("emulateCycleCounter returned false for RDTSCP opcode")
	}
	if regs.Rip != 0x400003 {
		t.Errorf("Rip = %#x, want 0x400003", regs.Rip)
	}
	if regs.Rcx != 0 {
		t.Errorf("Rcx = %#x, want 0 (processor id zeroed)", regs.Rcx)
	}
}

func TestSafeProbeLen(t *testing.T) {
	pageStart := hostarch.Addr(0x401000)
	if got, want := safeProbeLen(pageStart), opcodeProbeLen; got != want {
		t.Errorf("safeProbeLen(page start) = %d, want %d", got, want)
	}

	nearEnd := pageStart.RoundDown() + hostarch.PageSize - 2
	if got, want := safeProbeLen(nearEnd), 2; got != want {
		t.Errorf("safeProbeLen(2 bytes from page end) = %d, want %d", got, want)
	}
}

func TestEmulateCycleCounterUnrelatedOpcode(t *testing.T) {
	regs := unix.PtraceRegs{Rip: 0x400000}
	opcode := make([]byte, 16) // all zero bytes, not RDTSC/RDTSCP
	if emulateCycleCounter(&regs, opcode, 0, defaultCyclesPerSecond) {
		t.Fatal("emulateCycleCounter returned true for an unrelated opcode")
	}
	if regs.Rip != 0x400000 {
		t.Errorf("Rip moved despite no match: %#x", regs.Rip)
	}
}
