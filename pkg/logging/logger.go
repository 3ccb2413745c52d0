// Copyright 2025 The PEAC Protocol Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Options configures a logger created by New.
type Options struct {
	// Level sets the minimum level to emit. Defaults to LevelInfo.
	Level Level
	// Format selects text or JSON output. Defaults to FormatText.
	Format Format
	// Output sets the destination writer. Defaults to os.Stderr.
	Output io.Writer
}

// textLogger is the built-in Logger implementation.
type textLogger struct {
	mu     *sync.Mutex
	level  Level
	format Format
	out    io.Writer
	fields []field
}

type field struct {
	key   string
	value interface{}
}

var _ Logger = (*textLogger)(nil)

// New creates a Logger from the given options.
func New(opts Options) Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	return &textLogger{
		mu:     &sync.Mutex{},
		level:  opts.Level,
		format: opts.Format,
		out:    out,
	}
}

func (l *textLogger) Debug(format string, args ...interface{}) { l.emit(LevelDebug, format, args...) }
func (l *textLogger) Info(format string, args ...interface{})  { l.emit(LevelInfo, format, args...) }
func (l *textLogger) Warn(format string, args ...interface{})  { l.emit(LevelWarn, format, args...) }
func (l *textLogger) Error(format string, args ...interface{}) { l.emit(LevelError, format, args...) }

func (l *textLogger) Level() Level { return l.level }

func (l *textLogger) WithField(key string, value interface{}) Logger {
	child := *l
	child.fields = append(append([]field(nil), l.fields...), field{key: key, value: value})
	return &child
}

func (l *textLogger) emit(level Level, format string, args ...interface{}) {
	if level < l.level || l.level == LevelSilent {
		return
	}
	msg := fmt.Sprintf(format, args...)

	var line []byte
	if l.format == FormatJSON {
		entry := map[string]interface{}{
			"time":  time.Now().UTC().Format(time.RFC3339),
			"level": level.String(),
			"msg":   msg,
		}
		for _, f := range l.fields {
			entry[f.key] = f.value
		}
		line, _ = json.Marshal(entry)
		line = append(line, '\n')
	} else {
		var b strings.Builder
		b.WriteString(fmt.Sprintf("[%s] %s", strings.ToUpper(level.String()), msg))
		if len(l.fields) > 0 {
			parts := make([]string, 0, len(l.fields))
			for _, f := range l.fields {
				parts = append(parts, fmt.Sprintf("%s=%v", f.key, f.value))
			}
			sort.Strings(parts)
			b.WriteString(" {" + strings.Join(parts, ", ") + "}")
		}
		b.WriteString("\n")
		line = []byte(b.String())
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(line)
}
