package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mauv0809/symbol-loader/internal/config"
)

// levelRouter writes every event to the console and copies it to the file
// for its level: errors and above to errLog, the rest to infoLog.
type levelRouter struct {
	console io.Writer
	infoLog io.Writer
	errLog  io.Writer
}

func (r levelRouter) Write(p []byte) (int, error) {
	return r.WriteLevel(zerolog.NoLevel, p)
}

func (r levelRouter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	var errs []error
	if r.console != nil {
		if _, err := r.console.Write(p); err != nil {
			errs = append(errs, err)
		}
	}

	dst := r.infoLog
	if l >= zerolog.ErrorLevel && l != zerolog.NoLevel {
		dst = r.errLog
	}
	if dst != nil {
		if _, err := dst.Write(p); err != nil {
			errs = append(errs, err)
		}
	}
	return len(p), errors.Join(errs...)
}

type closers []io.Closer

func (c closers) Close() error {
	var errs []error
	for _, cl := range c {
		errs = append(errs, cl.Close())
	}
	return errors.Join(errs...)
}

func rotating(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
	}
}

// New builds the process logger. Events go to console; INFO and WARN are
// also appended to the info log file and ERROR and above to the error log
// file. Empty paths disable the corresponding file.
func New(cfg config.Logging, console io.Writer) (zerolog.Logger, io.Closer, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		l, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("parsing log level: %w", err)
		}
		level = l
	}

	router := levelRouter{}
	if console != nil {
		router.console = zerolog.ConsoleWriter{
			Out:        console,
			TimeFormat: "15:04:05.000",
			FormatCaller: func(i interface{}) string {
				return filepath.Base(fmt.Sprintf("%s", i))
			},
		}
	}

	var cs closers
	for _, f := range []struct {
		path string
		dst  *io.Writer
	}{
		{cfg.InfoPath, &router.infoLog},
		{cfg.ErrorPath, &router.errLog},
	} {
		if f.path == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("creating log directory: %w", err)
		}
		lj := rotating(f.path)
		*f.dst = lj
		cs = append(cs, lj)
	}

	log := zerolog.New(router).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()

	return log, cs, nil
}
