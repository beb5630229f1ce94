// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ProbeChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ProbeChain. If not, see <http://www.gnu.org/licenses/>.

// Package nlog is the small structured leveled logger used across nlcore,
// colorized the way the teacher's node colorizes its own log output: a
// color per level via fatih/color, written through a Windows-safe
// colorable writer, and only when the destination is actually a terminal.
package nlog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Level identifies a log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelColor = map[Level]*color.Color{
	LevelDebug: color.New(color.FgCyan),
	LevelInfo:  color.New(color.FgGreen),
	LevelWarn:  color.New(color.FgYellow),
	LevelError: color.New(color.FgRed),
}

var levelName = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

// Logger writes leveled, component-tagged key-value log lines.
type Logger struct {
	component string
	out       io.Writer
	colorize  bool
	mu        sync.Mutex
	minLevel  Level
}

// New returns a Logger tagged with component, writing to stderr.
// Output is colorized only when stderr is attached to a terminal.
func New(component string) *Logger {
	fd := os.Stderr.Fd()
	colorize := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	return &Logger{
		component: component,
		out:       colorable.NewColorableStderr(),
		colorize:  colorize,
		minLevel:  LevelDebug,
	}
}

// SetMinLevel suppresses log lines below level.
func (l *Logger) SetMinLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = level
}

func (l *Logger) log(level Level, msg string, kv []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.minLevel {
		return
	}

	tag := levelName[level]
	if l.colorize {
		tag = levelColor[level].Sprint(tag)
	}

	line := fmt.Sprintf("%s [%s] %s: %s", time.Now().Format(time.RFC3339), tag, l.component, msg)
	for i := 0; i+1 < len(kv); i += 2 {
		line += fmt.Sprintf(" %v=%v", kv[i], kv[i+1])
	}
	fmt.Fprintln(l.out, line)
}

// Debug logs a fine-grained trace message with key-value pairs.
func (l *Logger) Debug(msg string, kv ...interface{}) { l.log(LevelDebug, msg, kv) }

// Info logs a routine informational message with key-value pairs.
func (l *Logger) Info(msg string, kv ...interface{}) { l.log(LevelInfo, msg, kv) }

// Warn logs a recoverable anomaly with key-value pairs.
func (l *Logger) Warn(msg string, kv ...interface{}) { l.log(LevelWarn, msg, kv) }

// Error logs a failure with key-value pairs.
func (l *Logger) Error(msg string, kv ...interface{}) { l.log(LevelError, msg, kv) }
