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

package log

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Writer serializes writes to Next across concurrent Emit calls. It
// implements io.Writer itself so it can also serve as logrus's output
// target for JSONEmitter.
type Writer struct {
	Next io.Writer

	mu sync.Mutex
}

// Write implements io.Writer.
func (w *Writer) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Next.Write(b)
}

// GoogleEmitter formats log lines the way gVisor's own logs read:
// "mmdd hh:mm:ss.uuuuuu LEVEL message".
type GoogleEmitter struct {
	*Writer
}

// Emit implements Emitter.
func (g GoogleEmitter) Emit(level Level, timestamp time.Time, line string) {
	fmt.Fprintf(g.Writer, "%s %s %s\n", timestamp.Format("0102 15:04:05.000000"), level, line)
}
