package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/nijaru/yt-blog/config"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds the application logger. Output goes to stdout and, when a log
// directory is configured, to a rotating app.log inside it.
func New(cfg config.LogConfig) (*logrus.Logger, error) {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	switch cfg.Format {
	case "text":
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	default:
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	var out io.Writer = os.Stdout
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, os.ModePerm); err != nil {
			return nil, errors.Wrapf(err, "creating log directory %s", cfg.Dir)
		}

		logFile := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, "app.log"),
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, logFile)
	}
	log.SetOutput(out)

	return log, nil
}
