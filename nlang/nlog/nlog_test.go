package nlog

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogFiltersBelowMinLevel(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{component: "test", out: &buf, minLevel: LevelWarn}
	l.Debug("should not appear")
	assert.Empty(t, buf.String())

	l.Warn("should appear", "k", "v")
	assert.Contains(t, buf.String(), "should appear")
	assert.Contains(t, buf.String(), "k=v")
}

func TestLogIncludesComponentAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{component: "diff", out: &buf}
	l.Info("hello")
	assert.Contains(t, buf.String(), "diff")
	assert.Contains(t, buf.String(), "INFO")
	assert.Contains(t, buf.String(), "hello")
}
