package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnvVars clears all task manager environment variables.
func clearEnvVars() {
	envVars := []string{
		"PORT", "DEBUG", "LOG_FORMAT", "ENABLE_PPROF",
		"STORE_DRIVER", "DB_HOST", "DB_PORT", "DB_NAME", "TASKS_COLLECTION", "DB_CONNECT_TIMEOUT",
		"STORAGE_CONNECTION_STRING", "TASKS_TABLE",
		"REDIS_CONNECTION_STRING", "CACHE_TTL",
		"TASK_EVENTS_QUEUE", "PUBLISH_WORKERS", "PUBLISH_BUFFER", "PUBLISH_TIMEOUT", "PUBLISH_HANDOFF_TIMEOUT",
		"TASKS_API_URL",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnvVars()
	defer clearEnvVars()

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, ":3001", cfg.ListenAddr())
	assert.False(t, cfg.Debug)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.False(t, cfg.EnablePprof)

	assert.Equal(t, DriverMongo, cfg.Store.Driver)
	assert.Equal(t, "localhost", cfg.Store.Host)
	assert.Equal(t, 27017, cfg.Store.Port)
	assert.Equal(t, "taskmanager", cfg.Store.Database)
	assert.Equal(t, "tasks", cfg.Store.Collection)
	assert.Equal(t, 10*time.Second, cfg.Store.ConnectTimeout)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Store.MongoURI())
	assert.Equal(t, "tasks", cfg.Store.Table)

	assert.False(t, cfg.Cache.Enabled())
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)

	assert.False(t, cfg.Events.Enabled())
	assert.Equal(t, 4, cfg.Events.Workers)
	assert.Equal(t, 256, cfg.Events.Buffer)
	assert.Equal(t, 30*time.Second, cfg.Events.Timeout)
	assert.Equal(t, 15*time.Millisecond, cfg.Events.HandoffTimeout)

	assert.Equal(t, "http://localhost:3001/api", cfg.APIURL)
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnvVars()
	defer clearEnvVars()

	t.Setenv("PORT", "8080")
	t.Setenv("DEBUG", "true")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("STORE_DRIVER", "tables")
	t.Setenv("STORAGE_CONNECTION_STRING", "UseDevelopmentStorage=true")
	t.Setenv("TASKS_TABLE", "todo")
	t.Setenv("REDIS_CONNECTION_STRING", "localhost:6379")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("TASK_EVENTS_QUEUE", "task-events")
	t.Setenv("PUBLISH_WORKERS", "2")
	t.Setenv("TASKS_API_URL", "http://api.local/api/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr())
	assert.True(t, cfg.Debug)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, DriverTables, cfg.Store.Driver)
	assert.Equal(t, "todo", cfg.Store.Table)
	assert.True(t, cfg.Cache.Enabled())
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.True(t, cfg.Events.Enabled())
	assert.Equal(t, "UseDevelopmentStorage=true", cfg.Events.ConnectionString)
	assert.Equal(t, 2, cfg.Events.Workers)
	assert.Equal(t, "http://api.local/api", cfg.APIURL)
}

func TestLoad_MongoURIFromHost(t *testing.T) {
	clearEnvVars()
	defer clearEnvVars()

	t.Setenv("DB_HOST", "mongodb://user:pw@db:27018/?replicaSet=rs0")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mongodb://user:pw@db:27018/?replicaSet=rs0", cfg.Store.MongoURI())

	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "27018")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "mongodb://db:27018", cfg.Store.MongoURI())
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "port", env: map[string]string{"DB_PORT": "abc"}},
		{name: "zero port", env: map[string]string{"DB_PORT": "0"}},
		{name: "duration", env: map[string]string{"CACHE_TTL": "soon"}},
		{name: "bool", env: map[string]string{"DEBUG": "maybe"}},
		{name: "driver", env: map[string]string{"STORE_DRIVER": "postgres"}},
		{name: "tables without connection", env: map[string]string{"STORE_DRIVER": "tables"}},
		{name: "events without connection", env: map[string]string{"TASK_EVENTS_QUEUE": "q"}},
		{name: "workers", env: map[string]string{"PUBLISH_WORKERS": "0"}},
		{name: "log format", env: map[string]string{"LOG_FORMAT": "xml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars()
			defer clearEnvVars()
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
