package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultRawDir, cfg.RawDir)
	assert.Equal(t, DefaultDatabase, cfg.DatabasePath)
	assert.Equal(t, DefaultCatalog, cfg.CatalogPath)
	assert.Equal(t, DefaultStateFile, cfg.StatePath)
	assert.Equal(t, "skip", cfg.OnMalformed)
	assert.Equal(t, "table", cfg.OutputFormat)
	assert.False(t, cfg.Verbose)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	yaml := `raw_dir: /srv/raw
database: /srv/warehouse.duckdb
on_malformed: abort
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "duckmart.yaml"), []byte(yaml), 0o644))

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "/srv/raw", cfg.RawDir)
	assert.Equal(t, "/srv/warehouse.duckdb", cfg.DatabasePath)
	assert.Equal(t, "abort", cfg.OnMalformed)
	assert.Equal(t, DefaultCatalog, cfg.CatalogPath, "unset keys fall back to defaults")
	assert.Equal(t, "duckmart.yaml", GetConfigFileUsed())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "duckmart.yaml"), []byte("raw_dir: /from/file\n"), 0o644))
	t.Setenv("DUCKMART_RAW_DIR", "/from/env")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.RawDir)
}

func TestLoadFlagsWinOverEverything(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	t.Setenv("DUCKMART_RAW_DIR", "/from/env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("raw-dir", "", "")
	flags.String("state", "", "")
	require.NoError(t, flags.Parse([]string{"--raw-dir", "/from/flag", "--state", "/tmp/state.db"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)

	assert.Equal(t, "/from/flag", cfg.RawDir)
	assert.Equal(t, "/tmp/state.db", cfg.StatePath, "--state maps to state_path")
}

func TestLoadUnchangedFlagsAreIgnored(t *testing.T) {
	chdir(t, t.TempDir())

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("raw-dir", "", "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, DefaultRawDir, cfg.RawDir, "an unset flag must not blank the default")
}

func TestLoadRejectsBadPolicy(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "duckmart.yaml"), []byte("on_malformed: explode\n"), 0o644))

	_, err := Load("", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "on_malformed")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := Load("does-not-exist.yaml", nil)
	require.Error(t, err)
}

func chdir(t *testing.T, dir string) {
	t.Helper()

	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
