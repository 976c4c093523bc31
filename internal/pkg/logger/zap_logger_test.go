package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/piresc/payrelay/internal/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(t *testing.T, level string) (*ZapLogger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	l, err := NewZapLogger(ZapConfig{Service: "payment-service", Level: level, Output: buf}, nil)
	require.NoError(t, err)
	return l, buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		entry := map[string]interface{}{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		out = append(out, entry)
	}
	return out
}

func TestNewZapLogger_WritesJSON(t *testing.T) {
	l, buf := newBufferLogger(t, "info")

	l.Info("transaction created", Reference("ref_123"), TransactionID("tx-1"), Float64("amount", 100))
	l.Debug("hidden at info level")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "transaction created", lines[0]["message"])
	assert.Equal(t, "ref_123", lines[0]["reference"])
	assert.Equal(t, "tx-1", lines[0]["transaction_id"])
	assert.Equal(t, "payment-service", lines[0]["service"])
	assert.Equal(t, "info", lines[0]["level"])
}

func TestNewZapLogger_InvalidLevelDefaultsToInfo(t *testing.T) {
	l, buf := newBufferLogger(t, "verbose")

	l.Debug("debug")
	l.Warn("warn", Err(errors.New("boom")))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "boom", lines[0]["error"])
}

func TestNewZapLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "payment.log")
	l, err := NewZapLogger(ZapConfig{Level: "info", FilePath: path}, nil)
	require.NoError(t, err)

	l.Info("to file")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestInitZapLoggerFromConfig(t *testing.T) {
	cfg := &models.Config{}
	cfg.App.Name = "payment-service"
	cfg.Logger.Level = "debug"
	cfg.Logger.Type = "console"

	l, err := InitZapLoggerFromConfig(cfg, nil)
	require.NoError(t, err)
	assert.NotNil(t, l.Logger)
}

func TestGlobalLogger(t *testing.T) {
	l, buf := newBufferLogger(t, "debug")
	previous := GetGlobalLogger()
	SetGlobalLogger(l)
	defer SetGlobalLogger(previous)

	Info("global info", String("k", "v"))
	Warn("global warn")
	Debug("global debug", Duration("took", time.Second))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "v", lines[0]["k"])
	assert.Equal(t, "warn", lines[1]["level"])
}

func TestZapEchoMiddleware(t *testing.T) {
	l, buf := newBufferLogger(t, "info")

	e := echo.New()
	e.Use(ZapEchoMiddleware(l))
	e.GET("/ok", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/missing", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "nope")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok?x=1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "/ok?x=1", lines[0]["path"])
	assert.Equal(t, float64(http.StatusOK), lines[0]["status"])
	assert.Equal(t, "Client error", lines[1]["message"])
	assert.Equal(t, float64(http.StatusNotFound), lines[1]["status"])
}
