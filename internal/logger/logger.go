package logger

import (
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	logger *logrus.Logger
	once   sync.Once
)

// Init builds the process logger. An unknown level falls back to info.
func Init(level string) {
	logger = logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
}

func Get() *logrus.Logger {
	once.Do(func() {
		if logger == nil {
			Init("info")
		}
	})
	return logger
}
