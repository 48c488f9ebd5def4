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
	"bytes"
	"strings"
	"testing"
	"time"
)

type recordingEmitter struct {
	lines []string
}

func (r *recordingEmitter) Emit(level Level, _ time.Time, line string) {
	r.lines = append(r.lines, level.String()+": "+line)
}

func TestLevelFiltering(t *testing.T) {
	defer SetLevel(Info)
	defer SetTarget(discardEmitter{})

	rec := &recordingEmitter{}
	SetTarget(rec)

	SetLevel(Info)
	Debugf("should not appear")
	Infof("should appear")

	if len(rec.lines) != 1 {
		t.Fatalf("got %d lines, want 1: %v", len(rec.lines), rec.lines)
	}
	if !strings.Contains(rec.lines[0], "should appear") {
		t.Errorf("line %q missing expected text", rec.lines[0])
	}

	SetLevel(Debug)
	Debugf("now visible")
	if len(rec.lines) != 2 {
		t.Fatalf("got %d lines after raising level, want 2: %v", len(rec.lines), rec.lines)
	}
}

func TestIsLogging(t *testing.T) {
	defer SetLevel(Info)

	SetLevel(Warning)
	if IsLogging(Info) {
		t.Errorf("IsLogging(Info) = true at level Warning")
	}
	SetLevel(Debug)
	if !IsLogging(Debug) {
		t.Errorf("IsLogging(Debug) = false at level Debug")
	}
}

func TestMultiEmitterFansOut(t *testing.T) {
	var a, b bytes.Buffer
	m := MultiEmitter{
		GoogleEmitter{&Writer{Next: &a}},
		GoogleEmitter{&Writer{Next: &b}},
	}
	defer SetTarget(discardEmitter{})
	defer SetLevel(Info)
	SetLevel(Info)
	SetTarget(m)

	Infof("fan out")

	if a.Len() == 0 || b.Len() == 0 {
		t.Errorf("expected both emitters to receive the line, got a=%q b=%q", a.String(), b.String())
	}
}
