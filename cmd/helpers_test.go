package cmd

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/kyleking/xu-rsd-gen/internal/config"
	"github.com/kyleking/xu-rsd-gen/internal/testutil"
)

// newTestConfig returns defaults pointing at temp dirs and the sample template
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Service.BaseURL = testutil.TestBaseURL
	cfg.Generation.Template = testutil.WriteTemplate(t, testutil.SampleTemplate)
	cfg.Generation.TargetFolder = filepath.Join(dir, "OUTPUT")
	cfg.Database.Path = filepath.Join(dir, "history.db")
	cfg.Cache.Directory = filepath.Join(dir, "cache")

	return cfg
}

func slidingSuffix(days int) string {
	return time.Now().AddDate(0, 0, -days).Format("20060102")
}
