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
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config is tracedctl's parsed configuration, populated either from
// flags or, if -config points at a file, from a TOML document that
// overrides the flag values field by field, except that its
// deny_syscalls entries are added to the -deny-syscalls list.
type Config struct {
	// Argv is the guest command line. Argv[0] is resolved with the host's
	// PATH, matching execvpe semantics.
	Argv []string

	// DenySyscalls lists syscall numbers the demo handler resolves
	// immediately with -EPERM instead of letting them run, per the `run`
	// subcommand's demonstration policy.
	DenySyscalls []uintptr

	// CyclesPerSecond calibrates the emulated cycle counter.
	CyclesPerSecond uint64

	// DebugLog is a path to write debug-level logs to, taken from the
	// config file's debug_log key; empty leaves the global -debug-log
	// setting in effect.
	DebugLog string
}

// fileConfig is the TOML document shape decoded by loadConfigFile.
type fileConfig struct {
	Argv            []string `toml:"argv"`
	DenySyscalls    []int64  `toml:"deny_syscalls"`
	CyclesPerSecond uint64   `toml:"cycles_per_second"`
	DebugLog        string   `toml:"debug_log"`
}

// loadConfigFile decodes a TOML config file and merges non-zero fields
// into conf, mirroring gVisor's own decode-then-merge convention for
// config overlays.
func loadConfigFile(path string, conf *Config) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("decoding config file %q: %v", path, err)
	}
	if len(fc.Argv) > 0 {
		conf.Argv = fc.Argv
	}
	for _, n := range fc.DenySyscalls {
		conf.DenySyscalls = append(conf.DenySyscalls, uintptr(n))
	}
	if fc.CyclesPerSecond > 0 {
		conf.CyclesPerSecond = fc.CyclesPerSecond
	}
	if fc.DebugLog != "" {
		conf.DebugLog = fc.DebugLog
	}
	return nil
}
