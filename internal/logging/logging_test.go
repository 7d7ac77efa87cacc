package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, "debug", "json")
	t.Cleanup(func() { Setup(&bytes.Buffer{}, "info", "text") })

	Component("ai").WithField("line", 3).Debug("skipped fragment")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "ai", entry["component"])
	assert.Equal(t, "skipped fragment", entry["msg"])
	assert.EqualValues(t, 3, entry["line"])
}

func TestSetup_UnknownLevelFallsBackToInfo(t *testing.T) {
	Setup(&bytes.Buffer{}, "shouting", "text")
	t.Cleanup(func() { Setup(&bytes.Buffer{}, "info", "text") })

	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}
