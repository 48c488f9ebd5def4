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

package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
)

// Describe implements subcommands.Command for the "describe" command: it
// prints static facts about the controller's emulation instead of
// running anything.
type Describe struct {
	cyclesPerSec uint64
}

// Name implements subcommands.Command.Name.
func (*Describe) Name() string { return "describe" }

// Synopsis implements subcommands.Command.Synopsis.
func (*Describe) Synopsis() string {
	return "print the controller's cycle-counter emulation parameters"
}

// Usage implements subcommands.Command.Usage.
func (*Describe) Usage() string {
	return `describe [flags]
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (d *Describe) SetFlags(f *flag.FlagSet) {
	f.Uint64Var(&d.cyclesPerSec, "cycles-per-second", 2_000_000_000, "emulated cycle-counter frequency")
}

// Execute implements subcommands.Command.Execute.
func (d *Describe) Execute(context.Context, *flag.FlagSet, ...any) subcommands.ExitStatus {
	fmt.Printf("cycle-counter emulation: RDTSC (0F 31), RDTSCP (0F 01 F9)\n")
	fmt.Printf("cycles per second:       %d\n", d.cyclesPerSec)
	fmt.Printf("memory window:           /proc/<pid>/mem\n")
	fmt.Printf("tracer options:          PTRACE_O_EXITKILL|PTRACE_O_TRACESYSGOOD|PTRACE_O_TRACEEXEC\n")
	return subcommands.ExitSuccess
}
