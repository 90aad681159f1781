package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(zerolog.New(&buf)).WithFields(Fields{"extractor": "alibaba", "attempt": 2})

	l.Info().Msg("Extraction finished")

	line := decodeLine(t, &buf)
	assert.Equal(t, "alibaba", line["extractor"])
	assert.Equal(t, float64(2), line["attempt"])
	assert.Equal(t, "Extraction finished", line["message"])
	assert.Equal(t, "info", line["level"])
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	New(zerolog.New(&buf)).WithField("component", "store").WithError(assert.AnError).Warn().Msg("Detail write failed")

	line := decodeLine(t, &buf)
	assert.Equal(t, "store", line["component"])
	assert.Equal(t, assert.AnError.Error(), line["error"])
}

func TestGetLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	assert.Equal(t, zerolog.WarnLevel, getLogLevel())

	t.Setenv("LOG_LEVEL", "nonsense")
	assert.Equal(t, zerolog.InfoLevel, getLogLevel())

	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DETAIL_ENVIRONMENT", "production")
	assert.Equal(t, zerolog.InfoLevel, getLogLevel())

	t.Setenv("DETAIL_ENVIRONMENT", "development")
	assert.Equal(t, zerolog.DebugLevel, getLogLevel())
}

func TestComponentLoggers(t *testing.T) {
	for _, l := range []*Logger{ForExtractor("indiamart"), ForCache(), ForWorker(), ForPublisher(), ForStore(), ForBrowser(), ForFetcher(), ForProxy()} {
		assert.NotNil(t, l)
	}
}
