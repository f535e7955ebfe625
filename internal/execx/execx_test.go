package execx_test

import (
	"os"
	"path/filepath"
	"testing"

	"sqlporter/internal/console"
	"sqlporter/internal/execx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *console.Logger {
	return console.New(console.LevelError, false)
}

func TestModeForLevel(t *testing.T) {
	assert.Equal(t, execx.ModeStream, execx.ModeForLevel(console.LevelTrace))
	for _, l := range []console.Level{console.LevelError, console.LevelWarn, console.LevelInfo, console.LevelDebug} {
		assert.Equal(t, execx.ModeCapture, execx.ModeForLevel(l), "level %s", l)
	}
}

func TestRunCapturesOutputAndExitCode(t *testing.T) {
	r := &execx.Runner{Log: testLogger()}

	res, err := r.Run("echo", "", execx.ModeCapture, "sh", "-c", "echo hello; exit 0")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, string(res.Output), "hello")
}

func TestRunNonZeroExitIsNotAnError(t *testing.T) {
	r := &execx.Runner{Log: testLogger()}

	res, err := r.Run("fail", "", execx.ModeCapture, "sh", "-c", "echo oops >&2; exit 3")
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, string(res.Output), "oops")
}

func TestRunCommandNotFoundIsAnError(t *testing.T) {
	r := &execx.Runner{Log: testLogger()}

	_, err := r.Run("missing", "", execx.ModeCapture, "sqlporter-no-such-binary")
	assert.Error(t, err)
}

func TestRunPersistsLogFile(t *testing.T) {
	r := &execx.Runner{Log: testLogger()}
	logPath := filepath.Join(t.TempDir(), "run.log")

	_, err := r.Run("echo", logPath, execx.ModeCapture, "sh", "-c", "echo persisted")
	require.NoError(t, err)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "persisted")
}

func TestRunDiscardMode(t *testing.T) {
	r := &execx.Runner{Log: testLogger()}

	res, err := r.Run("quiet", "", execx.ModeDiscard, "sh", "-c", "echo noisy")
	require.NoError(t, err)
	assert.Empty(t, res.Output)
}

func TestTail(t *testing.T) {
	out := []byte("one\ntwo\nthree\nfour\n")
	assert.Equal(t, "three\nfour", execx.Tail(out, 2))
	assert.Equal(t, "one\ntwo\nthree\nfour", execx.Tail(out, 10))
	assert.Equal(t, "", execx.Tail(nil, 2))
	assert.Equal(t, "", execx.Tail(out, 0))
}
