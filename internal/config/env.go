package config

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

var envOnce sync.Once

// LoadEnv loads environment variables from a .env file if one exists
// in the working directory or its parent. Missing files are fine.
func LoadEnv(logger *logrus.Logger) {
	envOnce.Do(func() {
		if logger == nil {
			logger = logrus.New()
		}
		envFile := ".env"
		if _, err := os.Stat(envFile); os.IsNotExist(err) {
			envFile = filepath.Join("..", ".env")
			if _, err := os.Stat(envFile); os.IsNotExist(err) {
				logger.Debug("No .env file found, using environment variables")
				return
			}
		}
		if err := godotenv.Load(envFile); err != nil {
			logger.Warnf("Error loading .env file: %v", err)
			return
		}
		logger.Infof("Loaded environment variables from %s", envFile)
	})
}
