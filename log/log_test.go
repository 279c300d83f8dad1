package log

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLogLevel(t *testing.T) {
	r := require.New(t)

	var buf bytes.Buffer
	old := logWriter
	logWriter = &buf
	t.Cleanup(func() { logWriter = old })

	hooked := 0
	hookFn := func(entry zapcore.Entry) error {
		hooked++
		r.Equal(zapcore.InfoLevel, entry.Level, "got wrong log level")
		return nil
	}
	enc := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:  "msg",
		LevelKey:    "level",
		NameKey:     "name",
		EncodeLevel: zapcore.CapitalLevelEncoder,
	})
	logger := NewWithLevel("logtest", zap.NewAtomicLevelAt(zapcore.InfoLevel), enc, hookFn)

	logger.Debug("test001")
	r.Equal(0, buf.Len())

	logger.Info("test002")
	r.Equal("INFO\tlogtest\ttest002\n", buf.String())
	r.Equal(1, hooked)
}

func TestNew(t *testing.T) {
	_, err := New("x", "bogus", ConsoleEncoder)
	require.Error(t, err)
	_, err = New("x", "info", "xml")
	require.ErrorContains(t, err, "unknown log encoder")
	l, err := New("x", "debug", JSONEncoder)
	require.NoError(t, err)
	require.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestFatalError(t *testing.T) {
	reason := errors.New("boom")
	err := ErrInvariant(reason)
	require.Equal(t, "tree invariant violated: boom", err.Error())
	require.ErrorIs(t, err, reason)
	require.Equal(t, "bad CLI flags: --ops", ErrBadFlags("--ops").Error())
}
