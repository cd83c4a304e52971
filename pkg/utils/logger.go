package utils

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

type LogConfig struct {
	Level        string `json:"level" yaml:"level"`
	Format       string `json:"format" yaml:"format"` // json or text
	Output       string `json:"output" yaml:"output"` // console, file or both
	FileLocation string `json:"file_location" yaml:"file_location"`
	MaxSize      int    `json:"max_size" yaml:"max_size"` // megabytes
	MaxBackups   int    `json:"max_backups" yaml:"max_backups"`
	MaxAge       int    `json:"max_age" yaml:"max_age"` // days
	Compress     bool   `json:"compress" yaml:"compress"`
}

// Logger wraps logrus with rotating file output and service metadata on
// every entry.
type Logger struct {
	*logrus.Logger
	fileSink *lumberjack.Logger
}

func NewLogger(config LogConfig, service, version string) (*Logger, error) {
	l := &Logger{Logger: logrus.New()}

	level, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(config.Level)))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	switch strings.ToLower(config.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "severity",
				logrus.FieldKeyMsg:   "message",
			},
		})
	default:
		l.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339Nano,
			FullTimestamp:   true,
		})
	}

	var writers []io.Writer
	output := strings.ToLower(config.Output)
	if output == "" {
		output = "console"
	}
	if (output == "file" || output == "both") && config.FileLocation != "" {
		if err := os.MkdirAll(filepath.Dir(config.FileLocation), 0o755); err != nil {
			return nil, err
		}
		l.fileSink = &lumberjack.Logger{
			Filename:   config.FileLocation,
			MaxSize:    maxInt(1, config.MaxSize),
			MaxBackups: maxInt(0, config.MaxBackups),
			MaxAge:     maxInt(0, config.MaxAge),
			Compress:   config.Compress,
		}
		writers = append(writers, l.fileSink)
	}
	if output == "console" || output == "both" || len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}
	l.SetOutput(io.MultiWriter(writers...))

	l.AddHook(&serviceHook{service: service, version: version, hostname: hostname()})
	return l, nil
}

func (l *Logger) Rotate() error {
	if l.fileSink != nil {
		return l.fileSink.Rotate()
	}
	return nil
}

func (l *Logger) Close() error {
	if l.fileSink != nil {
		return l.fileSink.Close()
	}
	return nil
}

type serviceHook struct {
	service  string
	version  string
	hostname string
}

func (h *serviceHook) Levels() []logrus.Level { return logrus.AllLevels }

func (h *serviceHook) Fire(entry *logrus.Entry) error {
	entry.Data["service"] = h.service
	entry.Data["version"] = h.version
	entry.Data["hostname"] = h.hostname
	return nil
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return name
}

// DefaultLogger returns a console logger used when callers pass nil.
func DefaultLogger() *Logger {
	logger, err := NewLogger(LogConfig{Level: "info", Format: "text", Output: "console"}, "riskprobe", "dev")
	if err != nil {
		return &Logger{Logger: logrus.New()}
	}
	return logger
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
