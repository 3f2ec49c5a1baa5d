package log

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{" warn ", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelDebug},
		{"nonsense", LevelDebug},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestLog_FormatsFields(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf)
	defer func() { defaultLogger = nil }()

	Info(CatCommand, "run started", "command", "save", "run_id", 7)

	out := buf.String()
	require.Contains(t, out, "[INFO] [command] run started")
	require.Contains(t, out, "command=save")
	require.Contains(t, out, "run_id=7")
}

func TestLog_OddFieldCount(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf)
	defer func() { defaultLogger = nil }()

	Debug(CatSubject, "orphan", "key")

	require.Contains(t, buf.String(), "key=<missing>")
}

func TestLog_MinLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf)
	defer func() { defaultLogger = nil }()

	SetMinLevel(LevelWarn)
	Info(CatConfig, "hidden")
	Warn(CatConfig, "shown")

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "shown")
}

func TestLog_Disabled(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf)
	defer func() { defaultLogger = nil }()

	SetEnabled(false)
	Error(CatCommand, "nothing")

	require.Empty(t, buf.String())
}

func TestErrorErr_AppendsError(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf)
	defer func() { defaultLogger = nil }()

	ErrorErr(CatCommand, "action faulted", errors.New("boom"), "command", "save")
	ErrorErr(CatCommand, "no error", nil)

	require.Contains(t, buf.String(), "error=boom")
	require.Contains(t, buf.String(), "error=<nil>")
}

func TestNewListener_ReceivesEntries(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf)
	defer func() { defaultLogger = nil }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener := NewListener(ctx)
	require.NotNil(t, listener)

	Info(CatUI, "hello")

	done := make(chan LogEvent, 1)
	go func() {
		if ev, ok := listener.Listen()().(LogEvent); ok {
			done <- ev
		}
	}()

	select {
	case ev := <-done:
		require.Contains(t, ev.Payload, "hello")
	case <-time.After(time.Second):
		require.Fail(t, "timeout waiting for log event")
	}
}

func TestNewListener_NilWithoutLogger(t *testing.T) {
	defaultLogger = nil
	require.Nil(t, NewListener(context.Background()))
}
