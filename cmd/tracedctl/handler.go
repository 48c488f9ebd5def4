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
	"golang.org/x/sys/unix"

	"github.com/shadowsim/tracedthread/pkg/log"
	"github.com/shadowsim/tracedthread/pkg/tracedthread"
)

// denylistHandler is the `run` subcommand's demonstration syscall
// handler: every syscall runs natively except the configured denylist,
// which resolves immediately with -EPERM. It exists to exercise the
// controller end to end, not as a real sandboxing policy.
type denylistHandler struct {
	deny map[uintptr]bool
}

func newDenylistHandler(nums []uintptr) *denylistHandler {
	deny := make(map[uintptr]bool, len(nums))
	for _, n := range nums {
		deny[n] = true
	}
	return &denylistHandler{deny: deny}
}

// Handle implements tracedthread.Handler.
func (h *denylistHandler) Handle(t *tracedthread.TracedThread, sc tracedthread.SyscallInfo) tracedthread.Result {
	if h.deny[sc.Number] {
		log.Infof("tracedctl: denying syscall %d", sc.Number)
		return tracedthread.Done(uint64(-int64(unix.EPERM)))
	}
	return tracedthread.Native()
}
