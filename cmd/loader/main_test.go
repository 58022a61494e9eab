package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const header = "Symbol,Name,Last Sale,Net Change,% Change,Market Cap,Country,IPO Year,Volume,Sector,Industry\n"

type logFiles struct {
	info, errs string
}

func setupLogs(t *testing.T) logFiles {
	t.Helper()
	dir := t.TempDir()
	lf := logFiles{
		info: filepath.Join(dir, "Logs", "info.log"),
		errs: filepath.Join(dir, "Logs", "errors.log"),
	}
	t.Setenv("INFO_LOG", lf.info)
	t.Setenv("ERROR_LOG", lf.errs)
	t.Setenv("LOG_LEVEL", "info")
	for _, k := range []string{"CHUNK_SIZE", "CURRENCY_SYMBOL", "DATABASE_URL", "DB_NAME", "TARGET_TABLE"} {
		t.Setenv(k, "")
	}
	return lf
}

func writeCSV(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(header+body), 0o644))
	return path
}

// findEvent returns the first JSON log line in path with the given message.
func findEvent(t *testing.T, path, msg string) map[string]any {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var ev map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		if ev["message"] == msg {
			return ev
		}
	}
	require.NoError(t, sc.Err())
	t.Fatalf("no %q event in %s", msg, path)
	return nil
}

func TestRun_MissingSource(t *testing.T) {
	lf := setupLogs(t)
	nasdaq := writeCSV(t, "nasdaq.csv", "BBB,Beta Inc,$2.50,0,0,0,United States,2019,300,Technology,Software\n")

	var console bytes.Buffer
	code := run([]string{
		"--dry-run",
		"--nyse", filepath.Join(t.TempDir(), "missing.csv"),
		"--nasdaq", nasdaq,
	}, &console)
	require.Equal(t, 1, code)

	ev := findEvent(t, lf.errs, "Run failed")
	require.Equal(t, "market_symbols", ev["table"])
	require.Equal(t, "finan_invest", ev["database"])
	require.Equal(t, "source_read", ev["kind"])
	require.NotEmpty(t, ev["run_id"])
}

func TestRun_DryRunOneBatch(t *testing.T) {
	lf := setupLogs(t)
	nyse := writeCSV(t, "nyse.csv", "AAA,Alpha Corp,$10.00,0,0,0,United States,2020,1200,Finance,Banks\n")
	nasdaq := writeCSV(t, "nasdaq.csv", "BBB,Beta Inc,$2.50,0,0,0,United States,2019,300,Technology,Software\n")

	var console bytes.Buffer
	code := run([]string{
		"--dry-run",
		"--nyse", nyse,
		"--nasdaq", nasdaq,
		"--chunk-size", "5000",
	}, &console)
	require.Equal(t, 0, code, console.String())

	ev := findEvent(t, lf.info, "Records normalized")
	require.EqualValues(t, 2, ev["rows"])
	require.EqualValues(t, 1, ev["batches"])
	require.EqualValues(t, 5000, ev["chunk_size"])
	require.Equal(t, "market_symbols", ev["table"])

	findEvent(t, lf.info, "Dry run completed successfully")
}

func TestRun_BadFlag(t *testing.T) {
	setupLogs(t)
	var console bytes.Buffer
	require.Equal(t, 1, run([]string{"--chunk-size", "many"}, &console))
	require.Equal(t, 0, run([]string{"--help"}, &console))
}
