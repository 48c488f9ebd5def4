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
	"encoding/json"
	"testing"
	"time"
)

func TestJSONEmitterProducesValidJSON(t *testing.T) {
	var buf bytes.Buffer
	e := NewJSONEmitter(&Writer{Next: &buf})

	e.Emit(Debug, time.Now(), "decoded a packet")

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\noutput: %s", err, buf.String())
	}
	if msg, _ := decoded["msg"].(string); msg != "decoded a packet" {
		t.Errorf("msg = %q, want %q", msg, "decoded a packet")
	}
	if level, _ := decoded["level"].(string); level != "debug" {
		t.Errorf("level = %q, want %q", level, "debug")
	}
}
