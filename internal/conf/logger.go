package conf

import "github.com/bioscout/bioscout/internal/logger"

// GetLogger returns the configuration module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("conf")
}
