package host

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/osbuild/langpack-composer/internal/buildconf"
	"github.com/osbuild/langpack-composer/internal/catalog"
)

const (
	// LocaleGen lists the locales compiled into the locale archive.
	LocaleGen = "/etc/locale.gen"
	// DefaultLocaleFile holds the system wide LANG.
	DefaultLocaleFile = "/etc/default/locale"
	// LocaleArchive is the compiled locale data.
	LocaleArchive = "/usr/lib/locale/locale-archive"

	FallbackLocale = "en_US"

	localesPackage = "locales"
)

// names printed by `locale -a` that are not real locales
var builtinLocales = map[string]bool{
	"C":       true,
	"C.utf8":  true,
	"C.UTF-8": true,
	"POSIX":   true,
}

// Locales controls which locale is generated and set as the system default.
type Locales struct {
	r   *runner
	apt *Apt
}

// Available lists the locales installed on the host, without codeset suffix.
func (l *Locales) Available() ([]string, error) {
	out, err := l.r.run(nil, "locale", "-a")
	if err != nil {
		return nil, err
	}
	return ParseLocaleList(out), nil
}

// ParseLocaleList turns `locale -a` output into sorted locale codes.
func ParseLocaleList(out []byte) []string {
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" || builtinLocales[name] {
			continue
		}
		seen[catalog.TrimEncoding(name)] = true
	}

	codes := make([]string, 0, len(seen))
	for c := range seen {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// Regenerate makes code the only generated locale and the system default.
// It answers the locales debconf questions, drops the stale locale.gen so
// they are honored, and reinstalls the locales package.
func (l *Locales) Regenerate(code string) error {
	entry := code + ".UTF-8"
	err := l.apt.Preseed(
		Selection{localesPackage, "locales/locales_to_be_generated", "multiselect", entry + " UTF-8"},
		Selection{localesPackage, "locales/default_environment_locale", "select", entry},
	)
	if err != nil {
		return fmt.Errorf("cannot preseed locales: %w", err)
	}

	gen := filepath.Join(l.r.root, LocaleGen)
	if err := os.Remove(gen); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if err := l.apt.Reinstall(localesPackage); err != nil {
		return fmt.Errorf("cannot reinstall %s: %w", localesPackage, err)
	}
	return l.SetDefault(code)
}

// SetDefault writes LANG for code to DefaultLocaleFile.
func (l *Locales) SetDefault(code string) error {
	_, err := l.r.run(nil, "update-locale", "LANG="+code+".UTF-8")
	return err
}

// Default returns the host's default locale without codeset, FallbackLocale
// when none is configured.
func (l *Locales) Default() (string, error) {
	values, err := buildconf.ReadEnvFile(filepath.Join(l.r.root, DefaultLocaleFile))
	if errors.Is(err, os.ErrNotExist) {
		return FallbackLocale, nil
	} else if err != nil {
		return "", err
	}

	lang := values["LANG"]
	if lang == "" || builtinLocales[lang] {
		return FallbackLocale, nil
	}
	return catalog.TrimEncoding(lang), nil
}
