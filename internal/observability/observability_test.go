package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", "json")

	logger.Info("hidden")
	logger.Warn("orbit skipped", "orbit", "ATS_1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "orbit skipped", line["msg"])
	assert.Equal(t, "ATS_1", line["orbit"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "debug", "text")
	logger.Debug("cell", "key", "1000,2000")
	assert.Contains(t, buf.String(), "key=1000,2000")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("DEBUG").String())
	assert.Equal(t, "WARN", parseLevel("warning").String())
	assert.Equal(t, "ERROR", parseLevel("error").String())
	assert.Equal(t, "INFO", parseLevel("nonsense").String())
}

func TestNewMetricsForTesting_Independent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.OrbitsFailed.WithLabelValues(ReasonData).Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.OrbitsFailed.WithLabelValues(ReasonData)))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.OrbitsFailed.WithLabelValues(ReasonData)))
}
