package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/mauv0809/symbol-loader/internal/config"
)

func TestLevelRouter(t *testing.T) {
	var console, info, errs bytes.Buffer
	r := levelRouter{console: &console, infoLog: &info, errLog: &errs}

	_, err := r.WriteLevel(zerolog.InfoLevel, []byte("i\n"))
	require.NoError(t, err)
	_, err = r.WriteLevel(zerolog.ErrorLevel, []byte("e\n"))
	require.NoError(t, err)
	_, err = r.WriteLevel(zerolog.FatalLevel, []byte("f\n"))
	require.NoError(t, err)

	require.Equal(t, "i\ne\nf\n", console.String())
	require.Equal(t, "i\n", info.String())
	require.Equal(t, "e\nf\n", errs.String())
}

func TestNew_WritesPerLevelFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Logging{
		Level:     "info",
		InfoPath:  filepath.Join(dir, "logs", "info.log"),
		ErrorPath: filepath.Join(dir, "logs", "errors.log"),
	}

	var console bytes.Buffer
	log, closer, err := New(cfg, &console)
	require.NoError(t, err)

	log.Debug().Msg("hidden")
	log.Info().Str("table", "market_symbols").Msg("truncated")
	log.Error().Msg("insert failed")
	require.NoError(t, closer.Close())

	info, err := os.ReadFile(cfg.InfoPath)
	require.NoError(t, err)
	require.Contains(t, string(info), "truncated")
	require.NotContains(t, string(info), "insert failed")
	require.NotContains(t, string(info), "hidden")

	errLog, err := os.ReadFile(cfg.ErrorPath)
	require.NoError(t, err)
	require.Contains(t, string(errLog), "insert failed")
	require.NotContains(t, string(errLog), "truncated")

	require.Contains(t, console.String(), "truncated")
	require.Contains(t, console.String(), "insert failed")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, _, err := New(config.Logging{Level: "loud"}, nil)
	require.Error(t, err)
}
