package logger

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	log "github.com/sirupsen/logrus"
)

// LogFormatter renders entries as "timestamp [LEVEL] message".
type LogFormatter struct {
	TimestampFormat string
	LevelDesc       []string
}

// Format formats a single logrus entry.
func (f *LogFormatter) Format(entry *log.Entry) ([]byte, error) {
	timestamp := entry.Time.Format(f.TimestampFormat)
	level := f.LevelDesc[entry.Level]
	msg := fmt.Sprintf("%s [%s] %s\n", timestamp, level, entry.Message)
	return []byte(msg), nil
}

// Init configures logrus with the custom formatter, hourly file rotation
// and gzip compression of rotated files. Level comes from LOG_LEVEL.
func Init() {
	log.SetFormatter(&LogFormatter{
		TimestampFormat: "2006-01-02 15:04:05.000",
		LevelDesc:       []string{"PANIC", "FATAL", "ERROR", "WARN", "INFO", "DEBUG", "TRACE"},
	})

	if os.Getenv("LOG_LEVEL") == "DEBUG" {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}

	logDirectory := os.Getenv("LOG_DIRECTORY")
	if logDirectory == "" {
		logDirectory = "./logs"
	}

	maxAge, err := strconv.Atoi(os.Getenv("LOG_FILE_MAX_AGE"))
	if err != nil || maxAge <= 0 {
		maxAge = 2 // days
	}

	dateFolder := filepath.Join(logDirectory, time.Now().Format("2006-01-02"))
	if err := os.MkdirAll(dateFolder, 0755); err != nil {
		fmt.Println("Error creating log folder:", err)
		log.SetOutput(os.Stdout)
		return
	}

	rl, err := rotatelogs.New(
		fmt.Sprintf("%s/%%Y-%%m-%%d-%%H.log", dateFolder),
		rotatelogs.WithLinkName(filepath.Join(dateFolder, "current.log")),
		rotatelogs.WithRotationTime(time.Hour),
		rotatelogs.WithMaxAge(time.Duration(maxAge)*24*time.Hour),
		rotatelogs.WithHandler(rotatelogs.HandlerFunc(func(e rotatelogs.Event) {
			if e.Type() != rotatelogs.FileRotatedEventType {
				return
			}
			compressLogFile(e.(*rotatelogs.FileRotatedEvent).PreviousFile())
		})),
	)
	if err != nil {
		fmt.Println("Error initializing log rotation:", err)
		log.SetOutput(os.Stdout)
		return
	}

	log.SetOutput(io.MultiWriter(os.Stdout, rl))
	go cleanupOldFolders(logDirectory, maxAge)
}

// Info logs an informational message.
func Info(message string) {
	log.Info(message)
}

// Warn logs a warning message.
func Warn(message string) {
	log.Warn(message)
}

// Error logs an error message.
func Error(message string) {
	log.Error(message)
}

// Debug logs a debug message.
func Debug(message string) {
	log.Debug(message)
}

// Fatal logs a fatal message and exits.
func Fatal(message string) {
	log.Fatal(message)
}

// Infof logs a formatted informational message.
func Infof(format string, args ...interface{}) {
	log.Infof(format, args...)
}

// Warnf logs a formatted warning message.
func Warnf(format string, args ...interface{}) {
	log.Warnf(format, args...)
}

// Errorf logs a formatted error message.
func Errorf(format string, args ...interface{}) {
	log.Errorf(format, args...)
}

// Debugf logs a formatted debug message.
func Debugf(format string, args ...interface{}) {
	log.Debugf(format, args...)
}

// cleanupOldFolders removes dated log folders past their max age.
func cleanupOldFolders(baseDir string, maxAgeDays int) {
	for {
		cutoff := time.Now().Add(-time.Duration(maxAgeDays) * 24 * time.Hour)
		entries, err := os.ReadDir(baseDir)
		if err != nil {
			time.Sleep(time.Hour)
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			path := filepath.Join(baseDir, entry.Name())
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			if info.ModTime().Before(cutoff) {
				if err := os.RemoveAll(path); err != nil {
					fmt.Printf("Failed to delete old log folder %s: %v\n", path, err)
				}
			}
		}
		time.Sleep(time.Hour)
	}
}

func compressLogFile(src string) {
	f, err := os.Open(src)
	if err != nil {
		return
	}
	defer f.Close()

	fi, err := os.Stat(src)
	if err != nil {
		return
	}

	gzf, err := os.OpenFile(src+".gz", os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fi.Mode())
	if err != nil {
		return
	}
	defer gzf.Close()

	gz := gzip.NewWriter(gzf)
	defer gz.Close()

	if _, err := io.Copy(gz, f); err != nil {
		return
	}
	os.Remove(src)
}
