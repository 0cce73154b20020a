package setup

import (
	"bytes"
	"flag"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/obchart/config"
)

func TestWriteConfig_RoundTripsThroughConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFile)

	a := DefaultAnswers()
	a.Addr = ":9090"
	a.Data = "rows.json"
	a.ReplayInterval = "2s"
	a.RecorderEnabled = true
	a.RecorderSymbol = "ethusdt"
	a.RecorderMaxRows = "50"
	a.RecorderOutput = "dump.json"
	require.NoError(t, WriteConfig(path, a))

	cfg, err := config.Parse(flag.NewFlagSet("test", flag.ContinueOnError), []string{"--config", path})
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "rows.json", cfg.Data)
	assert.Equal(t, 2*time.Second, cfg.ReplayInterval)
	assert.True(t, cfg.Recorder.Enabled)
	assert.Equal(t, "ETHUSDT", cfg.Recorder.Symbol)
	assert.Equal(t, config.DefaultRecorderPoll, cfg.Recorder.Interval)
	assert.Equal(t, 50, cfg.Recorder.MaxRows)
	assert.Equal(t, "dump.json", cfg.Recorder.Output)
}

func TestWriteConfig_RecorderOff(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	require.NoError(t, WriteConfig(path, DefaultAnswers()))

	cfg, err := config.Parse(flag.NewFlagSet("test", flag.ContinueOnError), []string{"--config", path})
	require.NoError(t, err)
	assert.False(t, cfg.Recorder.Enabled)
	assert.Equal(t, config.DefaultAddr, cfg.Addr)
}

func TestWriteConfig_BadRows(t *testing.T) {
	a := DefaultAnswers()
	a.RecorderEnabled = true
	a.RecorderMaxRows = "many"

	assert.Error(t, WriteConfig(filepath.Join(t.TempDir(), DefaultConfigFile), a))
}

func TestValidators(t *testing.T) {
	assert.NoError(t, validateDuration("500ms"))
	assert.Error(t, validateDuration("0s"))
	assert.Error(t, validateDuration("soon"))

	assert.NoError(t, validatePositive("10"))
	assert.Error(t, validatePositive("0"))
	assert.Error(t, validatePositive("x"))

	assert.Error(t, notEmpty("symbol")("  "))
}

func TestSummaryAndWelcome(t *testing.T) {
	assert.Contains(t, Summary(DefaultAnswers()), "Recorder: off")
	assert.Contains(t, Summary(DefaultAnswers()), "Data: none")

	var buf bytes.Buffer
	Welcome(&buf)
	assert.Contains(t, buf.String(), "OBCHART")
}
