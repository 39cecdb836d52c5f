package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/config"
)

func TestNewWithOutput_JSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{Logging: config.LoggingConfig{Level: "debug", Format: "json"}}

	log := NewWithOutput(cfg, &buf)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())

	log.WithField("component", "cart").Warn("cart write failed")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "cart", line["component"])
	assert.Equal(t, "warning", line["level"])
}

func TestNewWithOutput_BadLevelFallsBackToInfo(t *testing.T) {
	cfg := &config.Config{Logging: config.LoggingConfig{Level: "loud", Format: "text"}}

	log := NewWithOutput(cfg, &bytes.Buffer{})
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
	_, isText := log.Formatter.(*logrus.TextFormatter)
	assert.True(t, isText)
}
