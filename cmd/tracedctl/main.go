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

// Command tracedctl is a standalone harness around the traced-thread
// controller: it launches a guest process under ptrace and mediates its
// syscalls without requiring a full discrete-event simulator.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"os"

	"github.com/google/subcommands"

	"github.com/shadowsim/tracedthread/pkg/log"
)

var (
	debugLog    = flag.String("debug-log", "", "path to write debug-level logs to; empty discards them")
	debugFormat = flag.String("debug-log-format", "text", "debug log format: text or json")
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(new(Run), "")
	subcommands.Register(new(Describe), "")

	flag.Parse()

	var w io.Writer = ioutil.Discard
	if *debugLog != "" {
		f, err := os.OpenFile(*debugLog, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "tracedctl: opening debug log %q: %v\n", *debugLog, err)
			os.Exit(1)
		}
		w = f
		log.SetLevel(log.Debug)
	}
	log.SetTarget(newEmitter(*debugFormat, w))

	os.Exit(int(subcommands.Execute(context.Background())))
}

func newEmitter(format string, w io.Writer) log.Emitter {
	switch format {
	case "json":
		return log.NewJSONEmitter(&log.Writer{Next: w})
	default:
		return log.GoogleEmitter{Writer: &log.Writer{Next: w}}
	}
}
