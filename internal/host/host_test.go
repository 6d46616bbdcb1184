package host_test

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	logrusTest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osbuild/langpack-composer/internal/host"
	"github.com/osbuild/langpack-composer/internal/keyboard"
)

type recorder struct {
	calls [][]string
	// stdin of debconf-set-selections is appended here
	selections string
	// output per command name
	stdout map[string]string
	fail   map[string]bool
}

func newRecorder(t *testing.T) *recorder {
	rec := &recorder{
		selections: filepath.Join(t.TempDir(), "selections"),
		stdout:     map[string]string{},
		fail:       map[string]bool{},
	}
	restore := host.MockExecCommand(func(name string, arg ...string) *exec.Cmd {
		call := append([]string{name}, arg...)
		rec.calls = append(rec.calls, call)

		tool := name
		if name == "chroot" {
			tool = arg[1]
		}
		switch {
		case rec.fail[tool]:
			return exec.Command("sh", "-c", `echo "E: $0 went wrong" >&2; exit 3`, tool)
		case tool == "debconf-set-selections":
			return exec.Command("sh", "-c", `cat >> "$0"`, rec.selections)
		case rec.stdout[tool] != "":
			return exec.Command("printf", "%s", rec.stdout[tool])
		}
		return exec.Command("true")
	})
	t.Cleanup(restore)
	return rec
}

func (r *recorder) preseeded(t *testing.T) string {
	data, err := os.ReadFile(r.selections)
	require.NoError(t, err)
	return string(data)
}

func newRoot(t *testing.T, files map[string]string) string {
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
	return root
}

func TestInstallOnHost(t *testing.T) {
	rec := newRecorder(t)
	logger, _ := logrusTest.NewNullLogger()

	sys := host.New("", logger)
	assert.Equal(t, "/", sys.Root)
	require.NoError(t, sys.Packages.Install("firefox-esr-l10n-fr"))
	require.NoError(t, sys.Packages.Install())

	assert.Equal(t, [][]string{
		{"apt-get", "install", "--yes", "--no-install-recommends", "-o", "Dpkg::Options::=--force-confnew", "firefox-esr-l10n-fr"},
	}, rec.calls)
}

func TestCommandsRunInChroot(t *testing.T) {
	rec := newRecorder(t)
	logger, _ := logrusTest.NewNullLogger()

	sys := host.New("/srv/live", logger)
	require.NoError(t, sys.Packages.Remove("locales"))

	require.Len(t, rec.calls, 1)
	assert.Equal(t, []string{"chroot", "/srv/live", "apt-get", "purge"}, rec.calls[0][:4])
}

func TestCommandError(t *testing.T) {
	rec := newRecorder(t)
	rec.fail["apt-get"] = true
	logger, _ := logrusTest.NewNullLogger()

	err := host.New("/", logger).Packages.Reinstall("locales")
	require.Error(t, err)

	var cerr *host.CommandError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, 3, cerr.ExitCode)
	assert.Equal(t, "E: apt-get went wrong", cerr.Stderr)
	assert.Contains(t, cerr.Error(), "--reinstall locales failed with exit status 3")
}

func TestParseLocaleList(t *testing.T) {
	out := "C\nC.utf8\nPOSIX\nde_DE.utf8\nen_US.utf8\nfr_FR\nfr_FR.utf8\nsr_RS@latin\n\n"
	assert.Equal(t, []string{"de_DE", "en_US", "fr_FR", "sr_RS@latin"}, host.ParseLocaleList([]byte(out)))
	assert.Empty(t, host.ParseLocaleList(nil))
}

func TestAvailable(t *testing.T) {
	rec := newRecorder(t)
	rec.stdout["locale"] = "C.utf8\nen_US.utf8\nfr_FR.utf8\n"
	logger, _ := logrusTest.NewNullLogger()

	codes, err := host.New("/", logger).Locales.Available()
	require.NoError(t, err)
	assert.Equal(t, []string{"en_US", "fr_FR"}, codes)
	assert.Equal(t, [][]string{{"locale", "-a"}}, rec.calls)
}

func TestRegenerate(t *testing.T) {
	rec := newRecorder(t)
	logger, _ := logrusTest.NewNullLogger()
	root := newRoot(t, map[string]string{
		"etc/locale.gen": "en_US.UTF-8 UTF-8\n",
	})

	require.NoError(t, host.New(root, logger).Locales.Regenerate("fr_FR"))

	assert.NoFileExists(t, filepath.Join(root, host.LocaleGen))
	assert.Equal(t, [][]string{
		{"chroot", root, "debconf-set-selections"},
		{"chroot", root, "apt-get", "install", "--yes", "--no-install-recommends", "-o", "Dpkg::Options::=--force-confnew", "--reinstall", "locales"},
		{"chroot", root, "update-locale", "LANG=fr_FR.UTF-8"},
	}, rec.calls)
	assert.Equal(t,
		"locales locales/locales_to_be_generated multiselect fr_FR.UTF-8 UTF-8\n"+
			"locales locales/default_environment_locale select fr_FR.UTF-8\n",
		rec.preseeded(t))
}

func TestRegenerateStopsOnFailure(t *testing.T) {
	rec := newRecorder(t)
	rec.fail["apt-get"] = true
	logger, _ := logrusTest.NewNullLogger()

	err := host.New(t.TempDir(), logger).Locales.Regenerate("de_DE")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot reinstall locales")
	for _, call := range rec.calls {
		assert.NotContains(t, call, "update-locale")
	}
}

func TestDefault(t *testing.T) {
	logger, _ := logrusTest.NewNullLogger()

	cases := map[string]string{
		"LANG=de_DE.UTF-8\n":       "de_DE",
		"LANG=\"pt_BR.UTF-8\"\n":   "pt_BR",
		"# nothing set\n":          host.FallbackLocale,
		"LANG=C.UTF-8\nLC_ALL=C\n": host.FallbackLocale,
	}
	for content, expected := range cases {
		root := newRoot(t, map[string]string{"etc/default/locale": content})
		code, err := host.New(root, logger).Locales.Default()
		require.NoError(t, err)
		assert.Equal(t, expected, code, content)
	}

	code, err := host.New(t.TempDir(), logger).Locales.Default()
	require.NoError(t, err)
	assert.Equal(t, host.FallbackLocale, code)
}

func TestKeyboardApply(t *testing.T) {
	rec := newRecorder(t)
	logger, _ := logrusTest.NewNullLogger()
	root := newRoot(t, map[string]string{
		"etc/default/keyboard": "XKBLAYOUT=\"us\"\n",
	})

	require.NoError(t, host.New(root, logger).Keyboard.Apply(keyboard.NewLayout("fr", "French")))

	assert.NoFileExists(t, filepath.Join(root, host.KeyboardDefaults))
	require.Len(t, rec.calls, 2)
	assert.Equal(t, []string{"chroot", root, "dpkg-reconfigure", "--frontend", "noninteractive", "keyboard-configuration"}, rec.calls[1])

	lines := strings.Split(strings.TrimSpace(rec.preseeded(t)), "\n")
	assert.Equal(t, []string{
		"keyboard-configuration keyboard-configuration/layoutcode string us,fr",
		"keyboard-configuration keyboard-configuration/variantcode string ,",
		"keyboard-configuration keyboard-configuration/optionscode string grp:alt_shift_toggle",
		"keyboard-configuration keyboard-configuration/xkb-keymap select fr",
	}, lines)
}
