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

// Package log implements a leveled logger on top of a pluggable Emitter,
// in the style used throughout the sentry: call sites log at a named
// level (Debugf, Infof, Warningf) and the active Emitter decides how (or
// whether) that ends up on disk.
package log

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Level is a log severity.
type Level int32

const (
	// Warning indicates a problem that does not halt execution.
	Warning Level = iota
	// Info is the default, general-purpose level.
	Info
	// Debug is high volume, enabled only when explicitly requested.
	Debug
)

// String implements fmt.Stringer.
func (l Level) String() string {
	switch l {
	case Warning:
		return "WARNING"
	case Info:
		return "INFO"
	case Debug:
		return "DEBUG"
	default:
		return fmt.Sprintf("Level(%d)", l)
	}
}

// Emitter receives already-leveled, already-formatted log lines.
type Emitter interface {
	Emit(level Level, timestamp time.Time, line string)
}

var (
	level  int32 = int32(Info)
	target atomic.Value
)

func init() {
	target.Store(Emitter(discardEmitter{}))
}

// SetLevel changes the active log level. Only messages at or below the
// new level are emitted.
func SetLevel(l Level) {
	atomic.StoreInt32(&level, int32(l))
}

// IsLogging returns true if messages at the given level are currently
// emitted. Call sites use this to avoid formatting expensive arguments
// when the message would be discarded anyway.
func IsLogging(l Level) bool {
	return Level(atomic.LoadInt32(&level)) >= l
}

// SetTarget installs the Emitter that receives all subsequent log lines.
func SetTarget(e Emitter) {
	target.Store(e)
}

func emit(l Level, format string, v ...any) {
	if !IsLogging(l) {
		return
	}
	e := target.Load().(Emitter)
	e.Emit(l, time.Now(), fmt.Sprintf(format, v...))
}

// Debugf logs at Debug level.
func Debugf(format string, v ...any) { emit(Debug, format, v...) }

// Infof logs at Info level.
func Infof(format string, v ...any) { emit(Info, format, v...) }

// Warningf logs at Warning level.
func Warningf(format string, v ...any) { emit(Warning, format, v...) }

type discardEmitter struct{}

func (discardEmitter) Emit(Level, time.Time, string) {}

// MultiEmitter fans a log line out to every Emitter it holds.
type MultiEmitter []Emitter

// Emit implements Emitter.
func (m MultiEmitter) Emit(level Level, timestamp time.Time, line string) {
	for _, e := range m {
		e.Emit(level, timestamp, line)
	}
}
