package cmd

import (
	"testing"

	"highroll/config"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestConfigureLogging(t *testing.T) {
	originalLevel := log.GetLevel()
	originalFormatter := log.StandardLogger().Formatter
	t.Cleanup(func() {
		log.SetLevel(originalLevel)
		log.SetFormatter(originalFormatter)
	})

	tests := []struct {
		name          string
		environment   string
		level         string
		expectedLevel log.Level
		expectJSON    bool
	}{
		{"production json", "production", "warn", log.WarnLevel, true},
		{"development text", "development", "debug", log.DebugLevel, false},
		{"unknown level falls back", "development", "loud", log.InfoLevel, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewTestConfig()
			cfg.Environment = tt.environment
			cfg.LogLevel = tt.level

			ConfigureLogging(cfg)

			assert.Equal(t, tt.expectedLevel, log.GetLevel())
			_, isJSON := log.StandardLogger().Formatter.(*log.JSONFormatter)
			assert.Equal(t, tt.expectJSON, isJSON)
		})
	}
}
