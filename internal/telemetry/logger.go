package telemetry

import "github.com/bioscout/bioscout/internal/logger"

// GetLogger returns the telemetry module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}
