package main_test

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	logrusTest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	main "github.com/osbuild/langpack-composer/cmd/langpack-composer"
)

func writeConfig(t *testing.T, content string) string {
	name := filepath.Join(t.TempDir(), "langpack-composer.toml")
	require.NoError(t, os.WriteFile(name, []byte(content), 0644))
	return name
}

func TestParseConfigDefaults(t *testing.T) {
	config, err := main.ParseConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, "/build/build.conf", config.BuildConfig)
	assert.Equal(t, "/build/modules", config.OutputDir)
	assert.Equal(t, "/var/tmp/langpack-composer", config.StagingDir)
	assert.Equal(t, "/", config.SourceRoot)
	assert.Equal(t, 8, config.CopyWorkers)
	assert.Equal(t, "xz", config.Squashfs.Compression)
	assert.Equal(t, "1024K", config.Squashfs.BlockSize)
	assert.Empty(t, config.Locales)
	assert.False(t, config.KeepStaging)
}

func TestParseConfig(t *testing.T) {
	name := writeConfig(t, `
build_config = "/srv/live/build.conf"
output_dir = "/srv/modules"
source_root = "/srv/live/chroot"
host_locale = "de_DE"
keep_staging = true
locales = ["fr_FR", "pt_BR"]
copy_workers = 2
metrics_file = "/var/lib/node_exporter/langpack.prom"
log_level = "debug"
log_format = "json"

[squashfs]
compression = "zstd"
`)

	config, err := main.ParseConfig(name)
	require.NoError(t, err)
	assert.Equal(t, "/srv/live/build.conf", config.BuildConfig)
	assert.Equal(t, "/srv/modules", config.OutputDir)
	assert.Equal(t, "/var/tmp/langpack-composer", config.StagingDir)
	assert.Equal(t, "/srv/live/chroot", config.SourceRoot)
	assert.Equal(t, "de_DE", config.HostLocale)
	assert.True(t, config.KeepStaging)
	assert.Equal(t, []string{"fr_FR", "pt_BR"}, config.Locales)
	assert.Equal(t, 2, config.CopyWorkers)
	assert.Equal(t, "json", config.LogFormat)
	assert.Equal(t, "zstd", config.Squashfs.Compression)
	// untouched keys of a table keep their default
	assert.Equal(t, "1024K", config.Squashfs.BlockSize)
}

func TestParseConfigInvalid(t *testing.T) {
	for _, content := range []string{
		`copy_workers = -1`,
		`log_format = "xml"`,
		`log_level = "chatty"`,
		`locales = "fr_FR"`,
		`output_dir = `,
	} {
		_, err := main.ParseConfig(writeConfig(t, content))
		assert.Error(t, err, content)
	}
}

func TestSetupLogging(t *testing.T) {
	config, err := main.ParseConfig(writeConfig(t, `log_format = "json"`))
	require.NoError(t, err)

	logger, _ := logrusTest.NewNullLogger()
	flush, err := main.SetupLogging(logger, config, true)
	require.NoError(t, err)
	defer flush()

	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	config.LogFormat = "text"
	config.LogLevel = "warning"
	logger, _ = logrusTest.NewNullLogger()
	_, err = main.SetupLogging(logger, config, false)
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}

func TestSetupLoggingAddsRunID(t *testing.T) {
	config, err := main.ParseConfig(writeConfig(t, `log_format = "json"`))
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	_, err = main.SetupLogging(logger, config, false)
	require.NoError(t, err)
	// added last so it sees the fields of the other hooks
	hook := logrusTest.NewLocal(logger)

	logger.Info("hello")
	require.NotNil(t, hook.LastEntry())
	assert.NotEmpty(t, hook.LastEntry().Data["run_id"])
	assert.NotEmpty(t, hook.LastEntry().Data["build_commit"])
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	main.PrintError(&buf, errors.New("boom"))
	assert.Contains(t, buf.String(), "error: boom")
}
