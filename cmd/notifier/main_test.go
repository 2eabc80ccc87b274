package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("OURA_ACCESS_TOKEN", "")
	t.Setenv("DISCORD_WEBHOOK_URL", "")
	t.Setenv("DAILY_STEPS_GOAL", "")
	t.Setenv("LOG_LEVEL", "error")
}

func TestRun_RejectsUnknownFlag(t *testing.T) {
	isolateEnv(t)
	var stderr bytes.Buffer
	assert.Equal(t, 1, run(context.Background(), []string{"--bogus"}, &stderr))
	assert.Contains(t, stderr.String(), "bogus")
}

func TestRun_RejectsUnknownType(t *testing.T) {
	isolateEnv(t)
	assert.Equal(t, 1, run(context.Background(), []string{"--type", "evening"}, io.Discard))
}

func TestRun_RejectsMalformedStepsGoal(t *testing.T) {
	isolateEnv(t)
	t.Setenv("DAILY_STEPS_GOAL", "lots")
	var stderr bytes.Buffer
	assert.Equal(t, 1, run(context.Background(), []string{"--test"}, &stderr))
	assert.Contains(t, stderr.String(), "DAILY_STEPS_GOAL")
}

func TestRun_RequiresCredentials(t *testing.T) {
	isolateEnv(t)
	assert.Equal(t, 1, run(context.Background(), []string{"--type", "noon"}, io.Discard))
	assert.Equal(t, 1, run(context.Background(), []string{"--test"}, io.Discard))
}

func TestRun_TestMessage(t *testing.T) {
	isolateEnv(t)
	var posts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&posts, 1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	t.Setenv("DISCORD_WEBHOOK_URL", srv.URL)

	assert.Equal(t, 0, run(context.Background(), []string{"--test"}, io.Discard))
	assert.EqualValues(t, 1, atomic.LoadInt32(&posts))
}

func TestRun_TestMessageDeliveryFailure(t *testing.T) {
	isolateEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()
	t.Setenv("DISCORD_WEBHOOK_URL", srv.URL)

	assert.Equal(t, 1, run(context.Background(), []string{"--test"}, io.Discard))
}
