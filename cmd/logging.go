package cmd

import (
	"os"

	"highroll/config"

	log "github.com/sirupsen/logrus"
)

// ConfigureLogging sets the logrus level and formatter for the environment.
// Production logs are JSON; everything else uses the text formatter.
func ConfigureLogging(cfg *config.Config) {
	log.SetOutput(os.Stdout)

	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("logLevel", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
