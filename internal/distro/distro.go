package distro

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/osbuild/langpack-composer/internal/common"
)

// Family groups distribution releases that share package naming and
// filesystem layout conventions.
type Family struct {
	name string
	// codenames of the releases belonging to the family, sorted
	codenames []string
	// maps a browser locale id to the package shipping its language pack
	browserPackage func(browserLocale string) string
	// directory holding the browser language pack extensions
	browserLangpackDir string
}

var (
	Debian = &Family{
		name:               "debian",
		codenames:          []string{"bookworm", "bullseye", "buster", "sid", "trixie"},
		browserPackage:     debianBrowserPackage,
		browserLangpackDir: "/usr/lib/firefox-esr/browser/extensions",
	}
	Ubuntu = &Family{
		name:               "ubuntu",
		codenames:          []string{"focal", "jammy", "noble"},
		browserPackage:     ubuntuBrowserPackage,
		browserLangpackDir: "/usr/lib/firefox/browser/extensions",
	}
)

// Note that this is a constant, do not write to this array.
var families = []*Family{Debian, Ubuntu}

// An UnknownDistributionError is returned when a codename does not belong to
// any known family. It is a configuration error and aborts the whole run.
type UnknownDistributionError struct {
	Codename string
}

func (e *UnknownDistributionError) Error() string {
	return fmt.Sprintf("unknown distribution %q, supported: %s", e.Codename, strings.Join(Codenames(), ", "))
}

func (f *Family) Name() string {
	return f.name
}

func (f *Family) String() string {
	return f.name
}

// BrowserPackage returns the name of the package shipping the browser
// language pack for the given browser locale id.
func (f *Family) BrowserPackage(browserLocale string) string {
	return f.browserPackage(browserLocale)
}

func debianBrowserPackage(browserLocale string) string {
	return "firefox-esr-l10n-" + strings.ToLower(browserLocale)
}

// Ubuntu ships one package per language, Chinese is split by script.
func ubuntuBrowserPackage(browserLocale string) string {
	switch strings.ToLower(browserLocale) {
	case "zh-cn", "zh-sg":
		return "firefox-locale-zh-hans"
	case "zh-tw", "zh-hk":
		return "firefox-locale-zh-hant"
	}
	lang, _, _ := strings.Cut(browserLocale, "-")
	return "firefox-locale-" + strings.ToLower(lang)
}

// BrowserLangpack returns the absolute path of the installed browser
// language pack for the given browser locale id.
func (f *Family) BrowserLangpack(browserLocale string) string {
	return path.Join(f.browserLangpackDir, "langpack-"+browserLocale+"@firefox.mozilla.org.xpi")
}

func (f *Family) Codenames() []string {
	return append([]string(nil), f.codenames...)
}

// Classify maps a distribution codename to its family.
func Classify(codename string) (*Family, error) {
	c := strings.ToLower(strings.TrimSpace(codename))
	for _, f := range families {
		if common.IsStringInSortedSlice(f.codenames, c) {
			return f, nil
		}
	}
	return nil, &UnknownDistributionError{Codename: codename}
}

// Families returns all known families in a stable order.
func Families() []*Family {
	return append([]*Family(nil), families...)
}

// FamilyNames returns the names of all known families, sorted alphabetically.
func FamilyNames() []string {
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.name)
	}
	sort.Strings(names)
	return names
}

// Codenames returns the codenames of all known releases, sorted alphabetically.
func Codenames() []string {
	var list []string
	for _, f := range families {
		list = append(list, f.codenames...)
	}
	sort.Strings(list)
	return list
}
