package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:8065", cfg.Service.BaseURL)
	assert.Equal(t, "HTTPJSON", cfg.Service.FilterDestinationType)
	assert.Equal(t, "http-json", cfg.Service.DestinationTypeParameter)
	assert.False(t, cfg.Service.ForceDestinationType)
	assert.Equal(t, "TEMPLATE_JSON.rsd", cfg.Generation.Template)
	assert.Equal(t, "./OUTPUT", cfg.Generation.TargetFolder)
	assert.Equal(t, 3, cfg.Generation.SlidingDays)
	assert.Equal(t, ColumnList{"AEDAT"}, cfg.Generation.SlidingColumns)
	assert.True(t, cfg.Database.Enabled)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.False(t, cfg.Debug.Enabled)
}

func TestDefaultConfigIgnoresEnvironment(t *testing.T) {
	t.Setenv("XU_RSD_BASE_URL", "http://elsewhere:9000")

	cfg := DefaultConfig()

	assert.Equal(t, "http://localhost:8065", cfg.Service.BaseURL)
}

func TestColumnListUnmarshalText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected ColumnList
		wantErr  bool
	}{
		{name: "json array", input: `["AEDAT","ERDAT"]`, expected: ColumnList{"AEDAT", "ERDAT"}},
		{name: "comma list", input: "AEDAT, ERDAT", expected: ColumnList{"AEDAT", "ERDAT"}},
		{name: "single", input: "AEDAT", expected: ColumnList{"AEDAT"}},
		{name: "empty", input: "", expected: ColumnList{}},
		{name: "blank entries dropped", input: "AEDAT,,", expected: ColumnList{"AEDAT"}},
		{name: "broken json", input: `["AEDAT"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var list ColumnList

			err := list.UnmarshalText([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, list)
		})
	}
}

func TestColumnListUnmarshalJSON(t *testing.T) {
	var holder struct {
		Columns ColumnList `json:"columns"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"columns":["AEDAT","LAEDA"]}`), &holder))
	assert.Equal(t, ColumnList{"AEDAT", "LAEDA"}, holder.Columns)

	require.NoError(t, json.Unmarshal([]byte(`{"columns":"ERDAT,AEDAT"}`), &holder))
	assert.Equal(t, ColumnList{"ERDAT", "AEDAT"}, holder.Columns)

	assert.True(t, holder.Columns.Contains("AEDAT"))
	assert.False(t, holder.Columns.Contains("MATNR"))
}

func TestLoadConfigFromFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.json")

	testConfig := map[string]interface{}{
		"service": map[string]interface{}{
			"base_url":               "http://xu.example:8065",
			"force_destination_type": true,
		},
		"generation": map[string]interface{}{
			"target_folder":   "/custom/output",
			"sliding_days":    7,
			"sliding_columns": []string{"AEDAT", "ERDAT"},
		},
		"logging": map[string]interface{}{
			"level":  "debug",
			"format": "json",
		},
	}

	data, err := json.MarshalIndent(testConfig, "", "  ")
	require.NoError(t, err)

	err = os.WriteFile(configPath, data, 0600)
	require.NoError(t, err)

	config := DefaultConfig()
	err = loadConfigFromFile(config, configPath)
	require.NoError(t, err)

	assert.Equal(t, "http://xu.example:8065", config.Service.BaseURL)
	assert.True(t, config.Service.ForceDestinationType)
	assert.Equal(t, "/custom/output", config.Generation.TargetFolder)
	assert.Equal(t, 7, config.Generation.SlidingDays)
	assert.Equal(t, ColumnList{"AEDAT", "ERDAT"}, config.Generation.SlidingColumns)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)

	// Keys absent from the file keep their defaults
	assert.Equal(t, "TEMPLATE_JSON.rsd", config.Generation.Template)
	assert.True(t, config.Database.Enabled)
}

func TestLoadConfigFromFileInvalidJSON(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.json")

	err := os.WriteFile(configPath, []byte("invalid json"), 0600)
	require.NoError(t, err)

	config := DefaultConfig()
	err = loadConfigFromFile(config, configPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestApplyEnvironmentOverrides(t *testing.T) {
	envVars := map[string]string{
		"XU_RSD_BASE_URL":                   "http://env-host:8065",
		"XU_RSD_FILTER_DESTINATION_TYPE":    "CSV",
		"XU_RSD_DESTINATION_TYPE_PARAMETER": "csv",
		"XU_RSD_FORCE_DESTINATION_TYPE":     "true",
		"XU_RSD_TEMPLATE":                   "/env/TEMPLATE.rsd",
		"XU_RSD_TARGET_FOLDER":              "/env/out",
		"XU_RSD_SLIDING_DAYS":               "14",
		"XU_RSD_SLIDING_COLUMNS":            `["AEDAT","ERDAT"]`,
		"XU_RSD_DB_PATH":                    "/env/history.db",
		"XU_RSD_CACHE_DIR":                  "/env/cache",
		"XU_RSD_LOG_LEVEL":                  "warn",
		"XU_RSD_LOG_OUTPUT":                 "file",
		"XU_RSD_VERBOSE":                    "true",
	}

	for key, value := range envVars {
		t.Setenv(key, value)
	}

	config := DefaultConfig()
	err := applyEnvironmentOverrides(config)
	require.NoError(t, err)

	assert.Equal(t, "http://env-host:8065", config.Service.BaseURL)
	assert.Equal(t, "CSV", config.Service.FilterDestinationType)
	assert.Equal(t, "csv", config.Service.DestinationTypeParameter)
	assert.True(t, config.Service.ForceDestinationType)
	assert.Equal(t, "/env/TEMPLATE.rsd", config.Generation.Template)
	assert.Equal(t, "/env/out", config.Generation.TargetFolder)
	assert.Equal(t, 14, config.Generation.SlidingDays)
	assert.Equal(t, ColumnList{"AEDAT", "ERDAT"}, config.Generation.SlidingColumns)
	assert.Equal(t, "/env/history.db", config.Database.Path)
	assert.Equal(t, "/env/cache", config.Cache.Directory)
	assert.Equal(t, "warn", config.Logging.Level)
	assert.Equal(t, "file", config.Logging.Output)
	assert.True(t, config.Debug.Verbose)
}

func TestApplyEnvironmentOverridesKeepsFileValues(t *testing.T) {
	config := DefaultConfig()
	config.Generation.SlidingDays = 9
	config.Service.ForceDestinationType = true

	require.NoError(t, applyEnvironmentOverrides(config))

	assert.Equal(t, 9, config.Generation.SlidingDays)
	assert.True(t, config.Service.ForceDestinationType)
}

func TestApplyFlagOverrides(t *testing.T) {
	config := DefaultConfig()

	overrides := map[string]interface{}{
		"base-url":               "http://flag-host:8065",
		"filter":                 "",
		"force-destination-type": true,
		"template":               "/flag/TEMPLATE.rsd",
		"output-dir":             "/flag/out",
		"sliding-days":           int64(5),
		"sliding-columns":        []string{"ERDAT"},
		"db-path":                "/flag/history.db",
		"log-level":              "error",
		"verbose":                true,
		"debug":                  true,
		"cache-dir":              "/flag/cache",
	}

	err := applyFlagOverrides(config, overrides)
	require.NoError(t, err)

	assert.Equal(t, "http://flag-host:8065", config.Service.BaseURL)
	assert.Equal(t, "", config.Service.FilterDestinationType)
	assert.True(t, config.Service.ForceDestinationType)
	assert.Equal(t, "/flag/TEMPLATE.rsd", config.Generation.Template)
	assert.Equal(t, "/flag/out", config.Generation.TargetFolder)
	assert.Equal(t, 5, config.Generation.SlidingDays)
	assert.Equal(t, ColumnList{"ERDAT"}, config.Generation.SlidingColumns)
	assert.Equal(t, "/flag/history.db", config.Database.Path)
	assert.Equal(t, "error", config.Logging.Level)
	assert.True(t, config.Debug.Verbose)
	assert.True(t, config.Debug.Enabled)
	assert.Equal(t, "/flag/cache", config.Cache.Directory)
	assert.True(t, config.Cache.Enabled)
}

func TestApplyFlagOverridesRejectsBadSlidingDays(t *testing.T) {
	err := applyFlagOverrides(DefaultConfig(), map[string]interface{}{"sliding-days": "three"})
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name          string
		modifyConfig  func(*Config)
		expectError   bool
		errorContains string
	}{
		{
			name:         "valid config",
			modifyConfig: func(_ *Config) {},
			expectError:  false,
		},
		{
			name: "invalid log level",
			modifyConfig: func(c *Config) {
				c.Logging.Level = "invalid"
			},
			expectError:   true,
			errorContains: "invalid log level",
		},
		{
			name: "invalid log format",
			modifyConfig: func(c *Config) {
				c.Logging.Format = "invalid"
			},
			expectError:   true,
			errorContains: "invalid log format",
		},
		{
			name: "invalid log output",
			modifyConfig: func(c *Config) {
				c.Logging.Output = "invalid"
			},
			expectError:   true,
			errorContains: "invalid log output",
		},
		{
			name: "empty base url",
			modifyConfig: func(c *Config) {
				c.Service.BaseURL = ""
			},
			expectError:   true,
			errorContains: "base url must not be empty",
		},
		{
			name: "relative base url",
			modifyConfig: func(c *Config) {
				c.Service.BaseURL = "localhost:8065"
			},
			expectError:   true,
			errorContains: "invalid service base url",
		},
		{
			name: "invalid service timeout",
			modifyConfig: func(c *Config) {
				c.Service.Timeout = "soon"
			},
			expectError:   true,
			errorContains: "invalid service timeout",
		},
		{
			name: "invalid database timeout",
			modifyConfig: func(c *Config) {
				c.Database.QueryTimeout = "invalid"
			},
			expectError:   true,
			errorContains: "invalid database query timeout",
		},
		{
			name: "invalid cache ttl",
			modifyConfig: func(c *Config) {
				c.Cache.TTL = "forever"
			},
			expectError:   true,
			errorContains: "invalid cache ttl",
		},
		{
			name: "negative sliding days",
			modifyConfig: func(c *Config) {
				c.Generation.SlidingDays = -1
			},
			expectError:   true,
			errorContains: "sliding days must not be negative",
		},
		{
			name: "empty template",
			modifyConfig: func(c *Config) {
				c.Generation.Template = ""
			},
			expectError:   true,
			errorContains: "template path must not be empty",
		},
		{
			name: "negative rate limit",
			modifyConfig: func(c *Config) {
				c.Service.RateLimit = -1
			},
			expectError:   true,
			errorContains: "rate limit must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modifyConfig(config)

			err := validateConfig(config)
			if tt.expectError {
				assert.Error(t, err)

				if tt.errorContains != "" {
					assert.Contains(t, err.Error(), tt.errorContains)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		t.Skip("home directory not available")
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "absolute path", input: "/absolute/path", expected: "/absolute/path"},
		{name: "relative path", input: "relative/path", expected: "relative/path"},
		{name: "home directory only", input: "~", expected: homeDir},
		{name: "home directory with path", input: "~/config/file.json", expected: filepath.Join(homeDir, "config/file.json")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, expandPath(tt.input))
		})
	}
}

func TestSaveConfig(t *testing.T) {
	tempConfigPath := filepath.Join(t.TempDir(), "test_config.json")
	t.Setenv("XU_RSD_CONFIG", tempConfigPath)

	config := DefaultConfig()
	config.Service.BaseURL = "http://saved:8065"
	config.Generation.SlidingColumns = ColumnList{"ERDAT"}

	err := SaveConfig(config)
	require.NoError(t, err)

	data, err := os.ReadFile(tempConfigPath)
	require.NoError(t, err)

	var loadedConfig Config
	err = json.Unmarshal(data, &loadedConfig)
	require.NoError(t, err)

	assert.Equal(t, "http://saved:8065", loadedConfig.Service.BaseURL)
	assert.Equal(t, ColumnList{"ERDAT"}, loadedConfig.Generation.SlidingColumns)
}

func TestLoadConfigWithOverrides(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.json")
	t.Setenv("XU_RSD_CONFIG", configPath)

	require.NoError(t, os.WriteFile(configPath, []byte(`{"generation":{"sliding_days":10,"target_folder":"/file/out"}}`), 0600))

	envFile := filepath.Join(tempDir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("XU_RSD_SLIDING_DAYS=20\n"), 0600))

	t.Cleanup(func() { os.Unsetenv("XU_RSD_SLIDING_DAYS") })

	config, err := LoadConfigWithOverrides(map[string]interface{}{
		"env-file":   envFile,
		"output-dir": "/flag/out",
	})
	require.NoError(t, err)

	// env file beats config file, flags beat both
	assert.Equal(t, 20, config.Generation.SlidingDays)
	assert.Equal(t, "/flag/out", config.Generation.TargetFolder)
	assert.Equal(t, "http://localhost:8065", config.Service.BaseURL)
}

func TestLoadConfigWithOverridesMissingEnvFile(t *testing.T) {
	t.Setenv("XU_RSD_CONFIG", filepath.Join(t.TempDir(), "absent.json"))

	_, err := LoadConfigWithOverrides(map[string]interface{}{
		"env-file": filepath.Join(t.TempDir(), "missing.env"),
	})
	assert.Error(t, err)
}

func TestFields(t *testing.T) {
	fields := DefaultConfig().Fields()

	assert.Equal(t, "http://localhost:8065", fields["base_url"])
	assert.Equal(t, "AEDAT", fields["sliding_columns"])
	assert.Equal(t, 3, fields["sliding_days"])
}
