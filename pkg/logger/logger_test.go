package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure(t *testing.T) {
	var buf bytes.Buffer
	Configure(Options{Level: "warn", Output: &buf})

	assert.Equal(t, logrus.WarnLevel, GetLogger().GetLevel())

	WithField("target", "octo/hello").Info("dropped")
	WithFields(logrus.Fields{"target": "octo/hello", "user": "alice"}).Warn("kept")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "alice", entry["user"])
}

func TestConfigureWithFile(t *testing.T) {
	var buf bytes.Buffer
	file := filepath.Join(t.TempDir(), "ghmirror.log")
	Configure(Options{Level: "debug", File: file, Output: &buf})

	Debugf("cycle %d", 1)
	assert.Contains(t, buf.String(), "cycle 1")
}
