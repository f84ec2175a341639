package main

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupEnv points the service at a stub forecast API and a fresh SQLite file.
func setupEnv(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()

	api := httptest.NewServer(handler)
	t.Cleanup(api.Close)

	dbPath := filepath.Join(t.TempDir(), "weather.db")
	t.Setenv("WEATHER_API_BASE_URL", api.URL)
	t.Setenv("DATABASE_URL", "sqlite://"+dbPath)
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("KAFKA_BROKERS", "")
	return dbPath
}

func countRows(t *testing.T, dbPath string) int {
	t.Helper()
	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM weather_data`).Scan(&n))
	return n
}

func okHandler(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte(`{"current_weather":{"temperature":18.5,"windspeed":12.0}}`))
}

func TestRunCommand_InsertsRow(t *testing.T) {
	dbPath := setupEnv(t, okHandler)

	require.NoError(t, newApp().RunContext(context.Background(), []string{"weather-etl", "run"}))
	require.NoError(t, newApp().RunContext(context.Background(), []string{"weather-etl", "run"}))

	assert.Equal(t, 2, countRows(t, dbPath))
}

func TestRunCommand_FailsOnServerError(t *testing.T) {
	dbPath := setupEnv(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	require.NoError(t, newApp().RunContext(context.Background(), []string{"weather-etl", "migrate"}))

	err := newApp().RunContext(context.Background(), []string{"weather-etl", "run"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "status 500")
	assert.Zero(t, countRows(t, dbPath))
}

func TestMigrateCommand_CreatesEmptyTable(t *testing.T) {
	dbPath := setupEnv(t, okHandler)

	require.NoError(t, newApp().RunContext(context.Background(), []string{"weather-etl", "migrate"}))
	require.NoError(t, newApp().RunContext(context.Background(), []string{"weather-etl", "migrate"}))

	assert.Zero(t, countRows(t, dbPath))
}

func TestRunCommand_InvalidConfig(t *testing.T) {
	setupEnv(t, okHandler)
	t.Setenv("WEATHER_LATITUDE", "123")

	err := newApp().RunContext(context.Background(), []string{"weather-etl", "run"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "WEATHER_LATITUDE")
}

func TestEnvFileFlag(t *testing.T) {
	dbPath := setupEnv(t, okHandler)
	t.Setenv("WEATHER_TABLE", "")
	os.Unsetenv("WEATHER_TABLE")

	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("WEATHER_TABLE=readings\n"), 0o600))

	require.NoError(t, newApp().RunContext(context.Background(),
		[]string{"weather-etl", "--env-file", envFile, "run"}))

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM readings`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestEnvFileFlag_MissingFile(t *testing.T) {
	setupEnv(t, okHandler)

	err := newApp().RunContext(context.Background(),
		[]string{"weather-etl", "--env-file", filepath.Join(t.TempDir(), "absent.env"), "run"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "load env file")
}
