package logging

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureGlobal(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestNewServiceLogger(t *testing.T) {
	buf := captureGlobal(t)

	l := WithTrack(NewServiceLogger("run-9", "counting"), 12)
	l.Info().Msg("hello")

	got := decode(t, buf)
	assert.Equal(t, "run-9", got["run_id"])
	assert.Equal(t, "counting", got["service"])
	assert.Equal(t, float64(12), got["track_id"])
	assert.Equal(t, "hello", got["message"])
}

func TestGinContextFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureGlobal(t)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Set(RequestIDKey, "req-1")
	c.Set(StartTimeKey, time.Now().Add(-time.Second))

	Info(c).Msg("request")

	got := decode(t, buf)
	assert.Equal(t, "req-1", got["request_id"])
	assert.Contains(t, got, "duration")
}

func TestGinContextNil(t *testing.T) {
	buf := captureGlobal(t)

	Warn(nil).Msg("no context")

	got := decode(t, buf)
	assert.NotContains(t, got, "request_id")
	assert.Equal(t, "warn", got["level"])
}
