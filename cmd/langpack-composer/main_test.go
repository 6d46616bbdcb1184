package main_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	logrusTest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	main "github.com/osbuild/langpack-composer/cmd/langpack-composer"
	"github.com/osbuild/langpack-composer/internal/buildconf"
	"github.com/osbuild/langpack-composer/internal/distro"
	"github.com/osbuild/langpack-composer/internal/pathpolicy"
)

func noenv(string) string {
	return ""
}

// setupRun writes a tool configuration pointing into a temporary directory
// and returns the arguments to run with it
func setupRun(t *testing.T, buildConf string, extra string) (args []string, outputDir string) {
	dir := t.TempDir()
	outputDir = filepath.Join(dir, "modules")

	buildConfig := filepath.Join(dir, "build.conf")
	require.NoError(t, os.WriteFile(buildConfig, []byte(buildConf), 0644))

	config := writeConfig(t, `
output_dir = "`+outputDir+`"
staging_dir = "`+filepath.Join(dir, "staging")+`"
source_root = "`+filepath.Join(dir, "root")+`"
`+extra)

	return []string{"langpack-composer", "--config", config, "--build-config", buildConfig}, outputDir
}

func TestRunHelp(t *testing.T) {
	logger, _ := logrusTest.NewNullLogger()
	restore := main.MockGeteuid(1000)
	defer restore()

	err := main.Run(context.Background(), []string{"langpack-composer", "--help"}, noenv, logger)
	assert.NoError(t, err)
}

func TestRunRejectsArguments(t *testing.T) {
	logger, _ := logrusTest.NewNullLogger()

	err := main.Run(context.Background(), []string{"langpack-composer", "fr_FR"}, noenv, logger)
	assert.Error(t, err)
}

func TestRunRequiresRoot(t *testing.T) {
	logger, _ := logrusTest.NewNullLogger()
	restore := main.MockGeteuid(1000)
	defer restore()

	args, _ := setupRun(t, "DISTRIBUTION=bookworm\nDISTRIBUTION_ARCH=amd64\n", "")
	err := main.Run(context.Background(), args, noenv, logger)
	assert.ErrorIs(t, err, main.ErrNotRoot)
}

func TestRunUnknownDistribution(t *testing.T) {
	logger, _ := logrusTest.NewNullLogger()
	restore := main.MockGeteuid(0)
	defer restore()

	args, outputDir := setupRun(t, "DISTRIBUTION=xyz\nDISTRIBUTION_ARCH=amd64\n", `locales = ["fr_FR"]`)
	err := main.Run(context.Background(), args, noenv, logger)

	var derr *distro.UnknownDistributionError
	require.True(t, errors.As(err, &derr), err)
	assert.Equal(t, "xyz", derr.Codename)
	assert.NoDirExists(t, outputDir)
}

func TestRunMissingBuildKeys(t *testing.T) {
	logger, _ := logrusTest.NewNullLogger()
	restore := main.MockGeteuid(0)
	defer restore()

	args, outputDir := setupRun(t, "DISTRIBUTION=bookworm\n", "")
	err := main.Run(context.Background(), args, noenv, logger)

	var kerr *buildconf.MissingKeyError
	require.True(t, errors.As(err, &kerr), err)
	assert.Equal(t, []string{buildconf.KeyDistributionArch}, kerr.Keys)
	assert.NoDirExists(t, outputDir)
}

func TestRunInvalidCatalog(t *testing.T) {
	logger, _ := logrusTest.NewNullLogger()
	restore := main.MockGeteuid(0)
	defer restore()

	catalogFile := filepath.Join(t.TempDir(), "catalog.toml")
	require.NoError(t, os.WriteFile(catalogFile, []byte("[locales.fr_FR]\nlayout = \"fr\"\n"), 0644))

	args, outputDir := setupRun(t, "DISTRIBUTION=focal\nDISTRIBUTION_ARCH=amd64\n", `catalog_file = "`+catalogFile+`"`)
	err := main.Run(context.Background(), args, noenv, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot load catalog")
	assert.NoDirExists(t, outputDir)
}

func TestRunConfigFromEnvironment(t *testing.T) {
	logger, _ := logrusTest.NewNullLogger()
	restore := main.MockGeteuid(1000)
	defer restore()

	config := writeConfig(t, `log_format = "yaml"`)
	getenv := func(key string) string {
		if key == "LANGPACK_COMPOSER_CONFIG" {
			return config
		}
		return ""
	}

	err := main.Run(context.Background(), []string{"langpack-composer"}, getenv, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), config)
}

func TestRunRefusesSystemWorkDirs(t *testing.T) {
	logger, _ := logrusTest.NewNullLogger()
	restore := main.MockGeteuid(0)
	defer restore()

	dir := t.TempDir()
	buildConfig := filepath.Join(dir, "build.conf")
	require.NoError(t, os.WriteFile(buildConfig, []byte("DISTRIBUTION=bookworm\nDISTRIBUTION_ARCH=amd64\n"), 0644))
	config := writeConfig(t, `
output_dir = "/usr/share/locale"
`)

	err := main.Run(context.Background(), []string{"langpack-composer", "--config", config, "--build-config", buildConfig}, noenv, logger)
	var perr *pathpolicy.PolicyError
	require.True(t, errors.As(err, &perr), err)
	assert.Contains(t, err.Error(), "invalid output_dir")
}
