package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"

	"github.com/invertedv/factdf/build"
	"github.com/invertedv/factdf/schema"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, e := Load(viper.New(), "")
	assert.Nil(t, e)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, schema.Keyed, cfg.KeyMode())
	assert.Equal(t, build.BackendSQL, cfg.BackendKind())
}

func TestLoad_Env(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("FACTDF_MODE", "positional")
	t.Setenv("FACTDF_LOG_LEVEL", "debug")
	t.Setenv("FACTDF_FAIL_ON_DROP", "true")

	cfg, e := Load(viper.New(), "")
	assert.Nil(t, e)
	assert.Equal(t, schema.Positional, cfg.KeyMode())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.FailOnDrop)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	body := "dialect: postgres\ndsn: postgres://u:p@localhost:5432/db\ntable: public.facts\nbackend: mem\nlog:\n  format: json\n"
	assert.Nil(t, os.WriteFile(filepath.Join(dir, "factdf.yaml"), []byte(body), 0o600))

	cfg, e := Load(viper.New(), "")
	assert.Nil(t, e)
	assert.Equal(t, "postgres", cfg.Dialect)
	assert.Equal(t, "public.facts", cfg.Table)
	assert.Equal(t, build.BackendMem, cfg.BackendKind())
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)

	// the environment overrides the file
	t.Setenv("FACTDF_BACKEND", "sql")
	cfg, e = Load(viper.New(), "")
	assert.Nil(t, e)
	assert.Equal(t, build.BackendSQL, cfg.BackendKind())

	_, e = Load(viper.New(), filepath.Join(dir, "missing.yaml"))
	assert.NotNil(t, e)
}

func TestValidate(t *testing.T) {
	for _, bad := range []func(c *Config){
		func(c *Config) { c.Dialect = "oracle" },
		func(c *Config) { c.DSN = "" },
		func(c *Config) { c.Table = "fact table" },
		func(c *Config) { c.Mode = "rowid" },
		func(c *Config) { c.Backend = "spark" },
		func(c *Config) { c.BatchSize = 0 },
	} {
		cfg := DefaultConfig()
		bad(cfg)
		assert.NotNil(t, cfg.Validate())
	}

	assert.Nil(t, DefaultConfig().Validate())
}
