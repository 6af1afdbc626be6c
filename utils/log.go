package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sirupsen/logrus"
	"github.com/topfreegames/pitaya/v3/pkg/logger/interfaces"
	logruswrapper "github.com/topfreegames/pitaya/v3/pkg/logger/logrus"
)

const (
	logDir      = "./logs"
	logMaxAge   = 7 * 24 * time.Hour
	logRotation = 24 * time.Hour
)

type Formatter struct{}

func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	timestamp := entry.Time.Format(time.DateTime)
	level := strings.ToLower(entry.Level.String())

	file, line, funcName := entry.Caller.File, entry.Caller.Line, entry.Caller.Function
	fileName := file[strings.LastIndex(file, "/")+1:]
	funcName = funcName[strings.LastIndex(funcName, ".")+1:]

	msg := fmt.Sprintf("%s [%s] %s:%d %s %s\n", timestamp, level, fileName, line, funcName, entry.Message)
	return []byte(msg), nil
}

// Logger builds the rotating-file logger used by the match and netcode layers.
func Logger(level logrus.Level) interfaces.Logger {
	l := logrus.New()
	if writer, err := newWriter(); err != nil {
		logrus.Fatalf("failed to create log writer: %v", err)
	} else {
		l.SetOutput(writer)
	}
	l.SetReportCaller(true)
	l.Formatter = &Formatter{}
	l.SetLevel(level)
	return logruswrapper.NewWithFieldLogger(l)
}

func newWriter() (*SafeRotateLogs, error) {
	programName := filepath.Base(os.Args[0])
	logFile := filepath.Join(logDir, fmt.Sprintf("%s-%%Y%%m%%d.log", programName))
	if err := os.MkdirAll(logDir, os.ModePerm); err != nil {
		logrus.Fatalf("failed to create log directory: %v", err)
	}

	writer, err := rotatelogs.New(
		logFile,
		rotatelogs.WithMaxAge(logMaxAge),
		rotatelogs.WithRotationTime(logRotation),
	)
	if err != nil {
		return nil, err
	}
	return &SafeRotateLogs{
		RotateLogs: writer,
		logPattern: logFile,
	}, nil
}

// SafeRotateLogs recreates the underlying writer if the current log file was
// removed from under it.
type SafeRotateLogs struct {
	*rotatelogs.RotateLogs
	logPattern string
}

func (s *SafeRotateLogs) Write(p []byte) (n int, err error) {
	currentLogFile := s.RotateLogs.CurrentFileName()
	if _, err := os.Stat(currentLogFile); os.IsNotExist(err) {
		writer, err := rotatelogs.New(
			s.logPattern,
			rotatelogs.WithMaxAge(logMaxAge),
			rotatelogs.WithRotationTime(logRotation),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to recreate log writer: %v", err)
		}
		s.RotateLogs = writer
	}
	return s.RotateLogs.Write(p)
}
