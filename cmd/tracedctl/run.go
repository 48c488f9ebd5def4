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
	"os"
	"strconv"
	"strings"

	"github.com/google/subcommands"

	"github.com/shadowsim/tracedthread/pkg/log"
	"github.com/shadowsim/tracedthread/pkg/tracedthread"
)

// Run implements subcommands.Command for the "run" command: it spawns a
// guest process under the traced-thread controller with the demo
// denylist handler, waits for it to exit, and reports its return code.
type Run struct {
	config       string
	cyclesPerSec uint64
	deny         string
}

// Name implements subcommands.Command.Name.
func (*Run) Name() string { return "run" }

// Synopsis implements subcommands.Command.Synopsis.
func (*Run) Synopsis() string {
	return "launch a guest process under the traced-thread controller"
}

// Usage implements subcommands.Command.Usage.
func (*Run) Usage() string {
	return `run [flags] -- <guest binary> [guest args...]
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (r *Run) SetFlags(f *flag.FlagSet) {
	f.StringVar(&r.config, "config", "", "optional TOML file overriding argv/deny-syscalls/cycles-per-second")
	f.Uint64Var(&r.cyclesPerSec, "cycles-per-second", 2_000_000_000, "emulated cycle-counter frequency")
	f.StringVar(&r.deny, "deny-syscalls", "", "comma-separated syscall numbers to resolve with -EPERM instead of running")
}

// Execute implements subcommands.Command.Execute.
func (r *Run) Execute(_ context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	conf := Config{
		Argv:            f.Args(),
		CyclesPerSecond: r.cyclesPerSec,
	}
	for _, s := range strings.Split(r.deny, ",") {
		if s == "" {
			continue
		}
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -deny-syscalls entry %q: %v\n", s, err)
			return subcommands.ExitUsageError
		}
		conf.DenySyscalls = append(conf.DenySyscalls, uintptr(n))
	}
	if r.config != "" {
		if err := loadConfigFile(r.config, &conf); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return subcommands.ExitFailure
		}
	}
	if conf.DebugLog != "" {
		lf, err := os.OpenFile(conf.DebugLog, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "run: opening debug log %q: %v\n", conf.DebugLog, err)
			return subcommands.ExitFailure
		}
		log.SetTarget(newEmitter(*debugFormat, lf))
		log.SetLevel(log.Debug)
	}
	if len(conf.Argv) == 0 {
		fmt.Fprintln(os.Stderr, "run: no guest command given (pass it after --)")
		return subcommands.ExitUsageError
	}

	handler := newDenylistHandler(conf.DenySyscalls)
	thread := tracedthread.New(handler, tracedthread.NewWallClock())
	thread.CyclesPerSecond = conf.CyclesPerSecond

	if err := thread.Run(conf.Argv, os.Environ()); err != nil {
		fmt.Fprintf(os.Stderr, "run: %v\n", err)
		return subcommands.ExitFailure
	}

	code := thread.ReturnCode()
	log.Infof("tracedctl: guest exited with code %d", code)
	os.Exit(code)
	return subcommands.ExitSuccess
}
