// Package logging настраивает zerolog для всего приложения.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Параметры ротации файла лога.
const (
	MaxSizeMB  = 10
	MaxBackups = 3
	MaxAgeDays = 28
)

// Options содержит настройки логирования.
type Options struct {
	// Verbose - уровень debug вместо info.
	Verbose bool

	// File - путь к файлу лога с ротацией (пусто = только консоль).
	File string

	// Console - куда писать консольный вывод (по умолчанию os.Stderr).
	Console io.Writer
}

// Setup настраивает глобальный логгер и логгер контекста по умолчанию.
// Возвращаемая функция закрывает файл лога.
func Setup(opts Options) (func() error, error) {
	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	var writers []io.Writer
	writers = append(writers, zerolog.ConsoleWriter{Out: console, TimeFormat: time.Kitchen})

	closer := func() error { return nil }
	if opts.File != "" {
		rotator, err := NewRotator(opts.File)
		if err != nil {
			return nil, err
		}
		writers = append(writers, rotator)
		closer = rotator.Close
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &log.Logger

	return closer, nil
}

// NewRotator создаёт writer с ротацией по размеру.
func NewRotator(path string) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию лога: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    MaxSizeMB,
		MaxBackups: MaxBackups,
		MaxAge:     MaxAgeDays,
		Compress:   true,
	}, nil
}
