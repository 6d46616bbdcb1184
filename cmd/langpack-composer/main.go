package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gookit/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/osbuild/langpack-composer/internal/buildconf"
	"github.com/osbuild/langpack-composer/internal/catalog"
	"github.com/osbuild/langpack-composer/internal/collect"
	"github.com/osbuild/langpack-composer/internal/common"
	"github.com/osbuild/langpack-composer/internal/distro"
	"github.com/osbuild/langpack-composer/internal/host"
	"github.com/osbuild/langpack-composer/internal/langpack"
	"github.com/osbuild/langpack-composer/internal/pathpolicy"
	"github.com/osbuild/langpack-composer/internal/prometheus"
	"github.com/osbuild/langpack-composer/internal/squashfs"
)

// ErrNotRoot is returned when the tool is not run as root, reconfiguring
// the system locale and keyboard requires it.
var ErrNotRoot = errors.New("langpack-composer must be run as root")

var (
	logrusNew = logrus.New
	geteuid   = unix.Geteuid
)

type cmdlineOpts struct {
	configFile  string
	buildConfig string
	locales     []string
	outputDir   string
	keepStaging bool
	verbose     bool
}

func newRootCmd(ctx context.Context, getenv func(string) string, logger *logrus.Logger) *cobra.Command {
	var opts cmdlineOpts

	cmd := &cobra.Command{
		Use:   "langpack-composer",
		Short: "Build language pack modules for the live system",
		Long: "langpack-composer builds one squashfs module per locale containing the\n" +
			"translations, browser and office language packs, generated locale data and\n" +
			"the keyboard layout of that locale.",
		Version:       common.Version(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := parseConfig(opts.configFile)
			if err != nil {
				return fmt.Errorf("cannot load config file %s: %w", opts.configFile, err)
			}
			applyFlags(cmd, &opts, config)
			return compose(ctx, config, opts.verbose, logger)
		},
	}

	configFile := defaultConfigFile
	if env := getenv("LANGPACK_COMPOSER_CONFIG"); env != "" {
		configFile = env
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configFile, "config", "c", configFile, "tool configuration file")
	flags.StringVarP(&opts.buildConfig, "build-config", "b", buildconf.DefaultFile, "build configuration of the live system")
	flags.StringArrayVarP(&opts.locales, "locale", "l", nil, "locale to build, may be repeated (default: all installed locales)")
	flags.StringVarP(&opts.outputDir, "output-dir", "o", "", "directory the modules are written to")
	flags.BoolVar(&opts.keepStaging, "keep-staging", false, "keep the staging trees after packaging")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug messages")

	return cmd
}

// applyFlags overrides the configuration with flags given on the command line.
func applyFlags(cmd *cobra.Command, opts *cmdlineOpts, config *composerConfig) {
	flags := cmd.Flags()
	if flags.Changed("build-config") {
		config.BuildConfig = opts.buildConfig
	}
	if flags.Changed("locale") {
		config.Locales = opts.locales
	}
	if flags.Changed("output-dir") {
		config.OutputDir = opts.outputDir
	}
	if flags.Changed("keep-staging") {
		config.KeepStaging = opts.keepStaging
	}
}

func compose(ctx context.Context, config *composerConfig, verbose bool, logger *logrus.Logger) error {
	flush, err := setupLogging(logger, config, verbose)
	defer flush()
	if err != nil {
		return err
	}

	if geteuid() != 0 {
		return ErrNotRoot
	}

	if err := checkWorkDirs(config); err != nil {
		return err
	}

	bc, err := buildconf.Load(config.BuildConfig)
	if err != nil {
		return err
	}
	family, err := distro.Classify(bc.Distribution)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"distribution": bc.Distribution,
		"family":       family,
		"arch":         bc.DistributionArch,
	}).Info("Building language packs")
	checkHost(config.SourceRoot, bc, logger)

	cat := catalog.Default()
	if config.CatalogFile != "" {
		override, err := catalog.LoadFile(config.CatalogFile)
		if err != nil {
			return fmt.Errorf("cannot load catalog %s: %w", config.CatalogFile, err)
		}
		cat = cat.Merge(override)
	}

	sys := host.New(config.SourceRoot, logger)

	hostLocale := config.HostLocale
	if hostLocale == "" {
		if hostLocale, err = sys.Locales.Default(); err != nil {
			return fmt.Errorf("cannot read the host locale: %w", err)
		}
	}

	codes := config.Locales
	if len(codes) == 0 {
		if codes, err = langpack.DiscoverLocales(ctx, sys.Locales); err != nil {
			return err
		}
	}
	if len(codes) == 0 {
		logger.Info("No locales to build")
		return nil
	}

	packager := squashfs.New(config.OutputDir, squashfs.Options{
		Compression: config.Squashfs.Compression,
		BlockSize:   config.Squashfs.BlockSize,
		Arch:        bc.DistributionArch,
	}, logger)
	builder := langpack.NewBuilder(
		cat,
		family,
		langpack.Host{Locales: sys.Locales, Keyboard: sys.Keyboard, Packages: sys.Packages},
		collect.New(config.SourceRoot, config.CopyWorkers, logger),
		packager,
		langpack.Options{StagingDir: config.StagingDir, KeepStaging: config.KeepStaging},
		logger,
	)

	reports, batchErr := langpack.NewBatch(builder, hostLocale, logger).Run(ctx, codes)

	if config.MetricsFile != "" {
		if err := prometheus.WriteTextfile(config.MetricsFile); err != nil {
			logger.WithError(err).Warn("Could not write metrics")
		}
	}
	if config.ReportFile != "" {
		if err := writeReport(config.ReportFile, reports); err != nil {
			logger.WithError(err).Warn("Could not write report")
		}
	}

	return batchErr
}

// checkHost warns when the configured distribution is not the one the
// resources are collected from.
func checkHost(root string, bc *buildconf.Config, logger logrus.FieldLogger) {
	release, err := common.ReadOSRelease(root)
	if err != nil {
		logger.WithError(err).Warn("Cannot read os-release")
		return
	}
	if release.VersionCodename != "" && release.VersionCodename != bc.Distribution {
		logger.WithFields(logrus.Fields{
			"host":       release.VersionCodename,
			"configured": bc.Distribution,
		}).Warn("Host release differs from the configured distribution")
	}
	if (root == "" || root == "/") && common.CurrentArch() != bc.DistributionArch {
		logger.WithFields(logrus.Fields{
			"host":       common.CurrentArch(),
			"configured": bc.DistributionArch,
		}).Warn("Host architecture differs from the configured architecture")
	}
}

// checkWorkDirs refuses to write staging trees or modules into the system
// the resources are collected from. A separate source root is never
// written to, so any directory is fine then.
func checkWorkDirs(config *composerConfig) error {
	if config.SourceRoot != "" && filepath.Clean(config.SourceRoot) != "/" {
		return nil
	}
	for key, dir := range map[string]string{
		"staging_dir": config.StagingDir,
		"output_dir":  config.OutputDir,
	} {
		if err := pathpolicy.WorkDirPolicies.Check(filepath.Clean(dir)); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	return nil
}

func writeReport(name string, reports []langpack.Report) error {
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(name, append(data, '\n'), 0644)
}

func run(ctx context.Context, args []string, getenv func(string) string, logger *logrus.Logger) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := newRootCmd(ctx, getenv, logger)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func printError(w io.Writer, err error) {
	fmt.Fprintln(w, color.Danger.Sprintf("error: %v", err))
}

func main() {
	logger := logrusNew()
	ctx := context.Background()
	if err := run(ctx, os.Args, os.Getenv, logger); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}
