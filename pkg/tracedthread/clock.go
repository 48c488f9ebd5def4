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

import "time"

// WallClock is a Clock backed by the host's monotonic clock, for callers
// that aren't running under a discrete-event simulator and just want the
// cycle-counter trap to read real elapsed time.
type WallClock struct {
	start time.Time
}

// NewWallClock returns a Clock whose Now() reports nanoseconds since the
// call to NewWallClock.
func NewWallClock() *WallClock {
	return &WallClock{start: time.Now()}
}

// Now implements Clock.
func (w *WallClock) Now() int64 {
	return int64(time.Since(w.start))
}
