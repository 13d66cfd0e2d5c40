package observability

import "github.com/bioscout/bioscout/internal/logger"

// GetLogger returns the metrics module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("metrics")
}
