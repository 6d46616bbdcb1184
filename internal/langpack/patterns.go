package langpack

import (
	"path"
	"strings"

	"github.com/osbuild/langpack-composer/internal/catalog"
	"github.com/osbuild/langpack-composer/internal/collect"
	"github.com/osbuild/langpack-composer/internal/distro"
	"github.com/osbuild/langpack-composer/internal/host"
)

const (
	officeLib   = "/usr/lib/libreoffice"
	officeShare = "/usr/share/libreoffice"
)

// alternatives returns "{a,b}" or just a when both are the same.
func alternatives(a, b string) string {
	if a == b || b == "" {
		return a
	}
	return "{" + a + "," + b + "}"
}

// SystemPatterns selects the translations, locale sources, manual pages
// and help of the base system.
func SystemPatterns(def catalog.Definition) []collect.Pattern {
	names := alternatives(def.Code, def.Language())
	return collect.Patterns(collect.System,
		"/usr/share/locale/"+names,
		"/usr/share/locale-langpack/"+names,
		"/usr/share/i18n/locales/"+def.Code,
		"/usr/share/man/"+names,
		"/usr/share/help/"+names,
	)
}

func BrowserPatterns(def catalog.Definition, family *distro.Family) []collect.Pattern {
	id := def.BrowserLocale(family)
	if id == "" {
		return nil
	}
	return collect.Patterns(collect.Browser, family.BrowserLangpack(id))
}

func OfficePatterns(def catalog.Definition) []collect.Pattern {
	return collect.Patterns(collect.Office,
		path.Join(officeLib, "program/resource", def.OfficeMessages),
		path.Join(officeLib, "share/autotext", def.Office),
		path.Join(officeLib, "share/template", def.Office),
		path.Join(officeLib, "share/wordbook", def.Office)+"*",
		path.Join(officeLib, "share/registry/res", "registry_"+def.Office+".xcd"),
		path.Join(officeLib, "share/registry", "Langpack-"+def.Office+".xcd"),
		path.Join(officeShare, "help", def.Office),
	)
}

// ArtifactPatterns selects the files the locale reconfiguration generated.
func ArtifactPatterns() []collect.Pattern {
	return collect.Patterns(collect.Artifact,
		host.LocaleArchive,
		host.LocaleGen,
		host.DefaultLocaleFile,
	)
}

// languagePackages returns the optional packages shipping the browser and
// office translations of a locale.
func languagePackages(def catalog.Definition, family *distro.Family) []string {
	var packages []string
	if id := def.BrowserLocale(family); id != "" {
		packages = append(packages, family.BrowserPackage(id))
	}
	if def.OfficeMessages != "" {
		suffix := strings.ToLower(def.OfficeMessages)
		packages = append(packages, "libreoffice-l10n-"+suffix, "libreoffice-help-"+suffix)
	}
	return packages
}
