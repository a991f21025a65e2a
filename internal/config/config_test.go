package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		yaml      string
		envVars   map[string]string
		wantErr   string
		checkFunc func(t *testing.T, cfg *Config)
	}{
		{
			name: "valid minimal config",
			yaml: `
database:
  host: localhost
  name: testdb
  user: testuser
harvest:
  terms_file: search_terms.json
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, "testdb", cfg.Database.Name)
				assert.Equal(t, "testuser", cfg.Database.User)
				assert.Equal(t, "search_terms.json", cfg.Harvest.TermsFile)
			},
		},
		{
			name: "defaults applied for optional fields",
			yaml: `
database:
  host: localhost
  name: testdb
  user: testuser
harvest:
  terms_file: search_terms.json
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "disable", cfg.Database.SSLMode)
				assert.Equal(t, 10, cfg.Database.PoolSize)
				assert.Equal(t, 2.0, cfg.Fetch.PerSecond)
				assert.Equal(t, 4, cfg.Fetch.Burst)
				assert.Equal(t, 30*time.Second, cfg.Fetch.Timeout)
				assert.Equal(t, time.Hour, cfg.Sync.Interval)
				assert.Equal(t, 2000, cfg.Sync.ChunkSize)
				assert.False(t, cfg.Sync.Pruning.Enabled)
				assert.Equal(t, 14*24*time.Hour, cfg.Sync.Pruning.Retention)
				assert.Equal(t, time.Hour, cfg.Harvest.Interval)
				assert.Equal(t, 3, cfg.Harvest.Retries)
				assert.Equal(t, 5*time.Second, cfg.Harvest.Backoff)
				assert.Equal(t, "ar", cfg.Localize.Language)
				assert.Equal(t, 100, cfg.Localize.ChunkSize)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "text", cfg.Logging.Format)
			},
		},
		{
			name: "env var substitution",
			yaml: `
database:
  host: localhost
  name: testdb
  user: testuser
  password: "${TEST_DB_PASSWORD}"
harvest:
  terms_file: search_terms.json
`,
			envVars: map[string]string{
				"TEST_DB_PASSWORD": "secret123",
			},
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "secret123", cfg.Database.Password)
			},
		},
		{
			name: "missing required database.host",
			yaml: `
database:
  name: testdb
  user: testuser
harvest:
  terms_file: search_terms.json
`,
			wantErr: "database.host is required",
		},
		{
			name: "missing required database.name",
			yaml: `
database:
  host: localhost
  user: testuser
harvest:
  terms_file: search_terms.json
`,
			wantErr: "database.name is required",
		},
		{
			name: "missing required database.user",
			yaml: `
database:
  host: localhost
  name: testdb
harvest:
  terms_file: search_terms.json
`,
			wantErr: "database.user is required",
		},
		{
			name: "missing harvest terms file",
			yaml: `
database:
  host: localhost
  name: testdb
  user: testuser
`,
			wantErr: "harvest.terms_file is required",
		},
		{
			name: "invalid localize language",
			yaml: `
database:
  host: localhost
  name: testdb
  user: testuser
harvest:
  terms_file: search_terms.json
localize:
  language: "not a language"
`,
			wantErr: "localize.language",
		},
		{
			name:    "invalid YAML",
			yaml:    `{{{not valid yaml`,
			wantErr: "parsing config YAML",
		},
		{
			name: "full config with overrides",
			yaml: `
server:
  host: "127.0.0.1"
  port: 9090
database:
  host: db.example.com
  port: 5433
  name: buyvia_prod
  user: admin
  password: pass
  sslmode: require
  pool_size: 20
fetch:
  per_second: 0.5
  burst: 2
  daily_limit: 100000
  timeout: 45s
sync:
  interval: 2h
  chunk_size: 500
  pruning:
    enabled: true
    retention: 168h
  resume:
    store_id: 2
    product_id: 40000
harvest:
  interval: 90m
  retries: 5
  backoff: 10s
  terms_file: /etc/buyvia/search_terms.json
localize:
  enabled: true
  language: ar
  chunk_size: 250
logging:
  level: debug
  format: json
`,
			checkFunc: func(t *testing.T, cfg *Config) {
				t.Helper()
				assert.Equal(t, "127.0.0.1", cfg.Server.Host)
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, "db.example.com", cfg.Database.Host)
				assert.Equal(t, "require", cfg.Database.SSLMode)
				assert.Equal(t, 20, cfg.Database.PoolSize)
				assert.Equal(t, 0.5, cfg.Fetch.PerSecond)
				assert.Equal(t, int64(100000), cfg.Fetch.DailyLimit)
				assert.Equal(t, 2*time.Hour, cfg.Sync.Interval)
				assert.Equal(t, 500, cfg.Sync.ChunkSize)
				assert.True(t, cfg.Sync.Pruning.Enabled)
				assert.Equal(t, 7*24*time.Hour, cfg.Sync.Pruning.Retention)
				assert.Equal(t, int64(2), cfg.Sync.Resume.StoreID)
				assert.Equal(t, int64(40000), cfg.Sync.Resume.ProductID)
				assert.Equal(t, 5, cfg.Harvest.Retries)
				assert.Equal(t, 10*time.Second, cfg.Harvest.Backoff)
				assert.True(t, cfg.Localize.Enabled)
				assert.Equal(t, 250, cfg.Localize.ChunkSize)
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			// Only parallelize tests that don't modify env vars.
			if len(tt.envVars) == 0 {
				t.Parallel()
			}

			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			cfg, err := Load(path)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.checkFunc != nil {
				tt.checkFunc(t, cfg)
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := Load("/nonexistent/path/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "basic DSN",
			cfg: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				Name:     "testdb",
				User:     "testuser",
				Password: "testpass",
				SSLMode:  "disable",
			},
			want: "host=localhost port=5432 dbname=testdb user=testuser password=testpass sslmode=disable",
		},
		{
			name: "production DSN",
			cfg: DatabaseConfig{
				Host:     "db.example.com",
				Port:     5433,
				Name:     "buyvia",
				User:     "admin",
				Password: "s3cret",
				SSLMode:  "require",
			},
			want: "host=db.example.com port=5433 dbname=buyvia user=admin password=s3cret sslmode=require",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.cfg.DSN())
		})
	}
}
