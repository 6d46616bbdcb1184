// Package buildconf reads the shell style KEY=value build configuration of
// the live system build.
package buildconf

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/ini.v1"
)

const DefaultFile = "/build/build.conf"

const (
	KeyDistribution     = "DISTRIBUTION"
	KeyDistributionArch = "DISTRIBUTION_ARCH"
)

var requiredKeys = []string{KeyDistribution, KeyDistributionArch}

// A MissingKeyError is returned when the build configuration lacks keys
// every build needs.
type MissingKeyError struct {
	File string
	Keys []string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("%s: missing required keys: %s", e.File, strings.Join(e.Keys, ", "))
}

type Config struct {
	Distribution     string
	DistributionArch string

	values map[string]string
}

// Get returns the raw value of any key of the configuration.
func (c *Config) Get(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Keys returns all keys set in the configuration, sorted alphabetically.
func (c *Config) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func Load(name string) (*Config, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return parse(name, data)
}

// Parse reads a configuration from memory, name is only used in errors.
func Parse(name string, data []byte) (*Config, error) {
	return parse(name, data)
}

func parse(name string, data []byte) (*Config, error) {
	values, err := ReadEnv(data)
	if err != nil {
		return nil, fmt.Errorf("cannot parse %s: %w", name, err)
	}

	var missing []string
	for _, k := range requiredKeys {
		if values[k] == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingKeyError{File: name, Keys: missing}
	}

	return &Config{
		Distribution:     values[KeyDistribution],
		DistributionArch: values[KeyDistributionArch],
		values:           values,
	}, nil
}

// ReadEnv parses KEY=value lines as found in shell configuration and
// /etc/default files. Quotes around values are removed, comments and
// lines that are not assignments are skipped.
func ReadEnv(data []byte) (map[string]string, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		SkipUnrecognizableLines:   true,
		SpaceBeforeInlineComment:  true,
		UnescapeValueDoubleQuotes: true,
	}, data)
	if err != nil {
		return nil, err
	}

	values := make(map[string]string)
	for _, k := range f.Section(ini.DefaultSection).Keys() {
		name := strings.TrimPrefix(k.Name(), "export ")
		values[strings.TrimSpace(name)] = k.Value()
	}
	return values, nil
}

// ReadEnvFile is ReadEnv for a file on disk.
func ReadEnvFile(name string) (map[string]string, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return ReadEnv(data)
}
