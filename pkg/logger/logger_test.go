package logger

import (
	"testing"

	"github.com/dmehra2102/prod-golang-projects/pharmacare/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	log, err := New(config.LogConfig{Level: "warn", Format: "json", OutputPath: "stdout"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))

	_, err = New(config.LogConfig{Level: "loud", Format: "console", OutputPath: "stdout"})
	assert.Error(t, err)
}
