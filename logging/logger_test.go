package logging

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var _ Logger = NoOpLogger{}
var _ Logger = (*ContextLogger)(nil)
var _ Logger = (*SlogAdapter)(nil)

func newBufferLogger(level LogLevel) (*ContextLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: level, Format: "text", Output: &buf})
	return l, &buf
}

func TestContextLoggerKeyValueArgs(t *testing.T) {
	l, buf := newBufferLogger(LogLevelInfo)
	l.WithConversation("agent-1", "conv-1").Info("turn started", "user_id", "u1")

	out := buf.String()
	assert.Contains(t, out, "turn started")
	assert.Contains(t, out, "agent_id=agent-1")
	assert.Contains(t, out, "conversation_id=conv-1")
	assert.Contains(t, out, "user_id=u1")
}

func TestContextLoggerLevelFilter(t *testing.T) {
	l, buf := newBufferLogger(LogLevelWarn)
	l.Info("should not appear")
	l.Warn("should appear")

	out := buf.String()
	assert.NotContains(t, out, "should not appear")
	assert.Contains(t, out, "should appear")
}

func TestSkillCall(t *testing.T) {
	l, buf := newBufferLogger(LogLevelDebug)

	SkillCall(l, "web-search", 5*time.Millisecond, "")
	assert.Contains(t, buf.String(), "skill execution completed")
	assert.Contains(t, buf.String(), "skill_id=web-search")

	buf.Reset()
	SkillCall(l, "web-search", 5*time.Millisecond, "upstream timeout")
	assert.Contains(t, buf.String(), "skill execution failed")
	assert.Contains(t, buf.String(), "upstream timeout")
}

func TestModelCall(t *testing.T) {
	l, buf := newBufferLogger(LogLevelDebug)

	ModelCall(l, "model-primary", false, time.Millisecond, nil)
	assert.Contains(t, buf.String(), "completion call completed")

	buf.Reset()
	ModelCall(l, "model-fallback", true, time.Millisecond, errors.New("rate limited"))
	assert.Contains(t, buf.String(), "completion call failed")
	assert.Contains(t, buf.String(), "is_fallback=true")
}

func TestDelegation(t *testing.T) {
	l, buf := newBufferLogger(LogLevelDebug)

	Delegation(l, "finance", "finance-agent", time.Millisecond, nil)
	assert.Contains(t, buf.String(), "delegation completed")
	assert.Contains(t, buf.String(), "domain=finance")

	buf.Reset()
	Delegation(l, "travel", "travel-agent", time.Millisecond, errors.New("agent down"))
	assert.Contains(t, buf.String(), "delegation failed")
}
