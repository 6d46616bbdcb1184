package buildconf_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osbuild/langpack-composer/internal/buildconf"
)

const sample = `# live system build configuration
DISTRIBUTION="bookworm"
DISTRIBUTION_ARCH='amd64'
DESKTOP_ENVIRONMENT=xfce # inline comment
export PACKAGE_VARIANT="standard"
COMP_TYPE="xz"

if [ -z "$X" ]; then
    echo nothing
fi
`

func TestParse(t *testing.T) {
	c, err := buildconf.Parse("build.conf", []byte(sample))
	require.NoError(t, err)
	assert.Equal(t, "bookworm", c.Distribution)
	assert.Equal(t, "amd64", c.DistributionArch)

	v, ok := c.Get("DESKTOP_ENVIRONMENT")
	assert.True(t, ok)
	assert.Equal(t, "xfce", v)

	v, ok = c.Get("PACKAGE_VARIANT")
	assert.True(t, ok)
	assert.Equal(t, "standard", v)

	_, ok = c.Get("MISSING")
	assert.False(t, ok)

	assert.Equal(t, []string{
		"COMP_TYPE",
		"DESKTOP_ENVIRONMENT",
		"DISTRIBUTION",
		"DISTRIBUTION_ARCH",
		"PACKAGE_VARIANT",
	}, c.Keys())
}

func TestParseMissingKeys(t *testing.T) {
	_, err := buildconf.Parse("build.conf", []byte("DISTRIBUTION=focal\n"))
	var missing *buildconf.MissingKeyError
	require.True(t, errors.As(err, &missing), "unexpected error: %v", err)
	assert.Equal(t, []string{"DISTRIBUTION_ARCH"}, missing.Keys)
	assert.Equal(t, "build.conf: missing required keys: DISTRIBUTION_ARCH", err.Error())

	_, err = buildconf.Parse("empty.conf", nil)
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"DISTRIBUTION", "DISTRIBUTION_ARCH"}, missing.Keys)

	// an empty value is as good as no value
	_, err = buildconf.Parse("build.conf", []byte("DISTRIBUTION=\nDISTRIBUTION_ARCH=arm64\n"))
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"DISTRIBUTION"}, missing.Keys)
}

func TestLoad(t *testing.T) {
	name := filepath.Join(t.TempDir(), "build.conf")
	require.NoError(t, os.WriteFile(name, []byte(sample), 0600))

	c, err := buildconf.Load(name)
	require.NoError(t, err)
	assert.Equal(t, "bookworm", c.Distribution)

	_, err = buildconf.Load(filepath.Join(t.TempDir(), "nope.conf"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestReadEnvFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "locale")
	require.NoError(t, os.WriteFile(name, []byte("#  File generated by update-locale\nLANG=fr_FR.UTF-8\nLANGUAGE=\"fr_FR:fr\"\n"), 0600))

	env, err := buildconf.ReadEnvFile(name)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"LANG":     "fr_FR.UTF-8",
		"LANGUAGE": "fr_FR:fr",
	}, env)
}
