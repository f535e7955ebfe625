package console_test

import (
	"bytes"
	"testing"

	"sqlporter/internal/console"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

type syncBuffer struct {
	bytes.Buffer
}

func (*syncBuffer) Sync() error { return nil }

func newTestLogger(level console.Level) (*console.Logger, *syncBuffer, *syncBuffer) {
	out := &syncBuffer{}
	errOut := &syncBuffer{}
	return console.NewWithSinks(level, false, zapcore.AddSync(out), zapcore.AddSync(errOut)), out, errOut
}

func TestParseLevel(t *testing.T) {
	cases := map[string]console.Level{
		"error":   console.LevelError,
		"warn":    console.LevelWarn,
		"warning": console.LevelWarn,
		"info":    console.LevelInfo,
		"":        console.LevelInfo,
		"DEBUG":   console.LevelDebug,
		" trace ": console.LevelTrace,
	}
	for input, want := range cases {
		got, err := console.ParseLevel(input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, want, got, "input %q", input)
	}

	_, err := console.ParseLevel("loud")
	assert.Error(t, err)
}

// A message at level L is emitted iff configured >= L, for every pair.
func TestEmissionMatrix(t *testing.T) {
	levels := []console.Level{
		console.LevelError,
		console.LevelWarn,
		console.LevelInfo,
		console.LevelDebug,
		console.LevelTrace,
	}

	emit := func(lg *console.Logger, msg console.Level) {
		switch msg {
		case console.LevelError:
			lg.Errorf("x")
		case console.LevelWarn:
			lg.Warnf("x")
		case console.LevelInfo:
			lg.Infof("x")
		case console.LevelDebug:
			lg.Debugf("x")
		case console.LevelTrace:
			lg.Tracef("x")
		}
	}

	for _, configured := range levels {
		for _, msg := range levels {
			lg, out, errOut := newTestLogger(configured)
			emit(lg, msg)

			emitted := out.Len() > 0 || errOut.Len() > 0
			assert.Equal(t, configured >= msg, emitted,
				"configured=%s message=%s", configured, msg)
		}
	}
}

func TestErrorsGoToErrorStream(t *testing.T) {
	lg, out, errOut := newTestLogger(console.LevelTrace)

	lg.Errorf("boom")
	assert.Zero(t, out.Len())
	assert.Contains(t, errOut.String(), "boom")

	lg.Infof("fine")
	assert.Contains(t, out.String(), "fine")
}

func TestTimestampToggle(t *testing.T) {
	out := &syncBuffer{}
	errOut := &syncBuffer{}
	lg := console.NewWithSinks(console.LevelInfo, true, zapcore.AddSync(out), zapcore.AddSync(errOut))

	lg.Infof("stamped")
	// Layout starts with the four-digit year.
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2} `, out.String())
}
