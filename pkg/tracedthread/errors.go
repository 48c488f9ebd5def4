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

import "errors"

// ErrFatalHost is wrapped by errors originating from a failed host
// operation (fork, exec, a ptrace request, memory-window I/O). The
// traced thread cannot continue once one of these occurs.
var ErrFatalHost = errors.New("traced thread: fatal host error")

// ErrProtocolViolation is wrapped by errors raised when a wait status
// does not match any case the stop classifier understands.
var ErrProtocolViolation = errors.New("traced thread: protocol violation")
