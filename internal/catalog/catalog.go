// Package catalog maps locale codes to the identifiers needed to find the
// locale's resources in the keyboard, browser and office subsystems.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/language"

	"github.com/osbuild/langpack-composer/internal/distro"
)

const (
	DefaultLayout            = "us"
	DefaultLayoutDescription = "English (US)"
)

// ErrInvalidCode is returned for names that cannot be used as a locale code.
var ErrInvalidCode = errors.New("invalid locale code")

//go:embed catalog.toml
var defaultCatalog string

// Definition holds everything needed to build the language pack of one
// locale. It is never mutated after the catalog is loaded.
type Definition struct {
	Code              string
	Layout            string
	LayoutDescription string
	// browser locale id per distribution family name
	Browser        map[string]string
	Office         string
	OfficeMessages string
}

// BrowserLocale returns the browser locale id used on the given family.
func (d Definition) BrowserLocale(family *distro.Family) string {
	return d.Browser[family.Name()]
}

// Language returns the base language of the definition's locale code.
func (d Definition) Language() string {
	return BaseLanguage(d.Code)
}

type Catalog struct {
	entries map[string]Definition
}

type document struct {
	Locales map[string]entry `toml:"locales"`
}

type entry struct {
	Layout            string            `toml:"layout"`
	LayoutDescription string            `toml:"layout_description"`
	Browser           map[string]string `toml:"browser"`
	Office            string            `toml:"office"`
	OfficeMessages    string            `toml:"office_messages"`
}

// An InvalidEntryError is returned when a catalog entry is incomplete or
// malformed.
type InvalidEntryError struct {
	Code   string
	Reason string
}

func (e *InvalidEntryError) Error() string {
	return fmt.Sprintf("invalid catalog entry %q: %s", e.Code, e.Reason)
}

// Default returns the catalog built into the binary.
func Default() *Catalog {
	c, err := Load(strings.NewReader(defaultCatalog))
	if err != nil {
		panic(fmt.Sprintf("built-in catalog is invalid, this is a programming error: %v", err))
	}
	return c
}

func LoadFile(name string) (*Catalog, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Load(f)
}

// Load reads a TOML catalog document and validates every entry. Unknown
// keys and partial entries are rejected.
func Load(r io.Reader) (*Catalog, error) {
	var doc document
	md, err := toml.NewDecoder(r).Decode(&doc)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("unknown catalog keys: %s", strings.Join(keys, ", "))
	}

	c := &Catalog{entries: make(map[string]Definition, len(doc.Locales))}
	for code, e := range doc.Locales {
		def := Definition{
			Code:              code,
			Layout:            e.Layout,
			LayoutDescription: e.LayoutDescription,
			Browser:           e.Browser,
			Office:            e.Office,
			OfficeMessages:    e.OfficeMessages,
		}
		if err := validate(def); err != nil {
			return nil, err
		}
		c.entries[code] = def
	}
	return c, nil
}

func validate(def Definition) error {
	if _, err := parseCode(def.Code); err != nil {
		return &InvalidEntryError{def.Code, fmt.Sprintf("not a locale code: %v", err)}
	}

	required := []struct {
		field string
		value string
	}{
		{"layout", def.Layout},
		{"layout_description", def.LayoutDescription},
		{"office", def.Office},
		{"office_messages", def.OfficeMessages},
	}
	for _, r := range required {
		if r.value == "" {
			return &InvalidEntryError{def.Code, "missing " + r.field}
		}
	}

	ids := []string{def.Layout, def.Office, def.OfficeMessages}

	families := distro.FamilyNames()
	if len(def.Browser) != len(families) {
		return &InvalidEntryError{def.Code, fmt.Sprintf("browser ids must cover exactly the families %s", strings.Join(families, ", "))}
	}
	for _, name := range families {
		id, ok := def.Browser[name]
		if !ok || id == "" {
			return &InvalidEntryError{def.Code, "missing browser id for family " + name}
		}
		ids = append(ids, id)
	}

	// ids end up in filesystem patterns
	for _, id := range ids {
		if strings.ContainsAny(id, "/\\*?[]{}") {
			return &InvalidEntryError{def.Code, fmt.Sprintf("id %q contains path or pattern characters", id)}
		}
	}
	return nil
}

// Lookup returns the definition for code. The code may carry an encoding
// suffix such as ".utf8", which is ignored.
func (c *Catalog) Lookup(code string) (Definition, bool) {
	def, ok := c.entries[TrimEncoding(code)]
	return def, ok
}

// Resolve returns the definition for code, falling back to the default
// keyboard layout and identifiers derived from the code itself when the
// catalog has no entry.
func (c *Catalog) Resolve(code string) (def Definition, found bool) {
	if def, ok := c.Lookup(code); ok {
		return def, true
	}

	code = TrimEncoding(code)
	lang := BaseLanguage(code)
	browser := make(map[string]string)
	for _, name := range distro.FamilyNames() {
		browser[name] = lang
	}
	return Definition{
		Code:              code,
		Layout:            DefaultLayout,
		LayoutDescription: DefaultLayoutDescription,
		Browser:           browser,
		Office:            strings.ReplaceAll(code, "_", "-"),
		OfficeMessages:    lang,
	}, false
}

// Codes returns the locale codes of all entries, sorted alphabetically.
func (c *Catalog) Codes() []string {
	list := make([]string, 0, len(c.entries))
	for code := range c.entries {
		list = append(list, code)
	}
	sort.Strings(list)
	return list
}

func (c *Catalog) Len() int {
	return len(c.entries)
}

// Merge returns a new catalog with the entries of other added to, or
// replacing, the entries of c.
func (c *Catalog) Merge(other *Catalog) *Catalog {
	merged := &Catalog{entries: make(map[string]Definition, len(c.entries)+len(other.entries))}
	for code, def := range c.entries {
		merged.entries[code] = def
	}
	for code, def := range other.entries {
		merged.entries[code] = def
	}
	return merged
}

// TrimEncoding strips the codeset suffix from a locale name, e.g.
// "fr_FR.utf8" becomes "fr_FR". A modifier ("@euro") is kept.
func TrimEncoding(code string) string {
	name, modifier, hasModifier := strings.Cut(code, "@")
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	if hasModifier {
		return name + "@" + modifier
	}
	return name
}

// ValidCode checks that code names a locale once its encoding is stripped.
// Codes end up in staging paths, module names and resource patterns, so an
// empty code or one with path or pattern characters is never valid. Well
// formed codes unknown to the language registry are accepted.
func ValidCode(code string) error {
	name := TrimEncoding(code)
	if name == "" || strings.ContainsAny(name, "/\\*?[]{}") {
		return fmt.Errorf("%q: %w", code, ErrInvalidCode)
	}
	if _, err := parseCode(name); err != nil {
		var verr language.ValueError
		if !errors.As(err, &verr) {
			return fmt.Errorf("%q: %w: %v", code, ErrInvalidCode, err)
		}
	}
	return nil
}

// BaseLanguage returns the base language subtag of a locale code, "fr" for
// "fr_FR" and "pt" for "pt_BR.utf8".
func BaseLanguage(code string) string {
	tag, err := parseCode(code)
	if err != nil {
		lang, _, _ := strings.Cut(TrimEncoding(code), "_")
		return lang
	}
	base, _ := tag.Base()
	return base.String()
}

func parseCode(code string) (language.Tag, error) {
	name, _, _ := strings.Cut(TrimEncoding(code), "@")
	return language.Parse(strings.ReplaceAll(name, "_", "-"))
}
