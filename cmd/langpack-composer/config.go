package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"

	"github.com/osbuild/langpack-composer/internal/buildconf"
	"github.com/osbuild/langpack-composer/internal/collect"
	"github.com/osbuild/langpack-composer/internal/squashfs"
)

const defaultConfigFile = "/etc/langpack-composer/langpack-composer.toml"

type squashfsConfig struct {
	Compression string `toml:"compression"`
	BlockSize   string `toml:"block_size"`
}

type composerConfig struct {
	// default value: /build/build.conf
	BuildConfig string `toml:"build_config"`
	// default value: /build/modules
	OutputDir string `toml:"output_dir"`
	// default value: /var/tmp/langpack-composer
	StagingDir string `toml:"staging_dir"`
	// the system the resources are collected from, default value: /
	SourceRoot string `toml:"source_root"`
	// entries replacing or extending the built-in catalog
	CatalogFile string `toml:"catalog_file"`
	// read from /etc/default/locale when empty
	HostLocale  string `toml:"host_locale"`
	KeepStaging bool   `toml:"keep_staging"`
	// all installed locales when empty
	Locales     []string `toml:"locales"`
	CopyWorkers int      `toml:"copy_workers"`
	// node-exporter textfile collector file
	MetricsFile string `toml:"metrics_file"`
	// JSON summary of the batch
	ReportFile string `toml:"report_file"`
	// default value: info
	LogLevel string `toml:"log_level"`
	// text or json, default value: text
	LogFormat string `toml:"log_format"`
	// send log entries to the systemd journal instead of stderr
	LogJournal bool           `toml:"log_journal"`
	SentryDSN  string         `toml:"sentry_dsn"`
	Squashfs   squashfsConfig `toml:"squashfs"`
}

func parseConfig(file string) (*composerConfig, error) {
	// set defaults
	config := composerConfig{
		BuildConfig: buildconf.DefaultFile,
		OutputDir:   "/build/modules",
		StagingDir:  "/var/tmp/langpack-composer",
		SourceRoot:  "/",
		CopyWorkers: collect.DefaultWorkers,
		LogLevel:    "info",
		LogFormat:   "text",
		Squashfs: squashfsConfig{
			Compression: squashfs.DefaultCompression,
			BlockSize:   squashfs.DefaultBlockSize,
		},
	}

	_, err := toml.DecodeFile(file, &config)
	if err != nil {
		// Return error only when we failed to decode the file.
		// A non-existing config isn't an error, use defaults in this case.
		if !os.IsNotExist(err) {
			return nil, err
		}

		logrus.Info("Configuration file not found, using defaults")
	}

	if config.CopyWorkers <= 0 {
		return nil, fmt.Errorf("invalid number of copy workers: %d", config.CopyWorkers)
	}

	switch config.LogFormat {
	case "text", "json":
		// good and supported
	default:
		return nil, fmt.Errorf("log_format needs to be text or json. Got: %s.", config.LogFormat)
	}

	if _, err := logrus.ParseLevel(config.LogLevel); err != nil {
		return nil, err
	}

	return &config, nil
}
