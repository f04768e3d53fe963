package ai

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/require"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevFlags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
	})
	return &buf
}

func TestDebugLogFollowsEnvironment(t *testing.T) {
	buf := captureLog(t)

	t.Setenv(debugEnv, "")
	debugLog("hidden %d", 1)
	require.Empty(t, buf.String())

	t.Setenv(debugEnv, "yes")
	debugLog("hidden %d", 2)
	require.Empty(t, buf.String())

	t.Setenv(debugEnv, "true")
	debugLog("reply after %d attempt(s)", 2)
	require.Equal(t, "[ai] reply after 2 attempt(s)\n", buf.String())

	buf.Reset()
	t.Setenv(debugEnv, "1")
	debugLog("ok")
	require.Equal(t, "[ai] ok\n", buf.String())
}
