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
	"time"

	"github.com/sirupsen/logrus"
)

// JSONEmitter formats log lines as JSON objects via logrus, for
// consumption by log aggregators the way runsc's "-debug-log-format=json"
// does.
type JSONEmitter struct {
	*Writer

	logger *logrus.Logger
}

// NewJSONEmitter returns a JSONEmitter writing to w.
func NewJSONEmitter(w *Writer) JSONEmitter {
	logger := logrus.New()
	logger.Out = w
	// pkg/log has already filtered by level; pass every line through.
	logger.Level = logrus.DebugLevel
	logger.Formatter = &logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano}
	return JSONEmitter{Writer: w, logger: logger}
}

// Emit implements Emitter.
func (j JSONEmitter) Emit(level Level, timestamp time.Time, line string) {
	entry := j.logger.WithTime(timestamp)
	switch level {
	case Debug:
		entry.Debug(line)
	case Warning:
		entry.Warning(line)
	default:
		entry.Info(line)
	}
}
