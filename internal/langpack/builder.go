// Package langpack builds the language pack module of a locale: it
// reconfigures the host for the locale, stages every locale specific
// resource and packs the staging tree.
package langpack

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/osbuild/langpack-composer/internal/catalog"
	"github.com/osbuild/langpack-composer/internal/collect"
	"github.com/osbuild/langpack-composer/internal/distro"
	"github.com/osbuild/langpack-composer/internal/keyboard"
)

type LocaleSystem interface {
	Available() ([]string, error)
	Default() (string, error)
	Regenerate(code string) error
	SetDefault(code string) error
}

type KeyboardSystem interface {
	Apply(layout keyboard.Layout) error
}

type PackageInstaller interface {
	Install(packages ...string) error
}

type ResourceCollector interface {
	Collect(ctx context.Context, patterns []collect.Pattern, destinationRoot string) (collect.Result, error)
	SyncMetadata(ctx context.Context, destinationRoot string) error
}

type ModulePackager interface {
	Path(code string) string
	Exists(code string) (bool, error)
	Package(ctx context.Context, stagingRoot, code string) (string, error)
}

// Host bundles the subsystems of the machine the packs are built on.
type Host struct {
	Locales  LocaleSystem
	Keyboard KeyboardSystem
	Packages PackageInstaller
}

type Options struct {
	// StagingDir holds one fresh staging tree per locale
	StagingDir  string
	KeepStaging bool
}

// Report is the outcome of building one locale.
type Report struct {
	Code  string `json:"code"`
	State State  `json:"state"`
	// Reached is the last state completed before the build ended
	Reached  State         `json:"reached"`
	Module   string        `json:"module,omitempty"`
	Err      error         `json:"-"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
	// Cataloged is false when the locale was built with the default layout
	Cataloged  bool           `json:"cataloged"`
	SkipReason string         `json:"skip_reason,omitempty"`
	Collected  collect.Result `json:"-"`
}

func (r Report) Failed() bool {
	return r.State == Failed
}

func (r Report) Skipped() bool {
	return r.State == Skipped
}

type Builder struct {
	catalog   *catalog.Catalog
	family    *distro.Family
	host      Host
	collector ResourceCollector
	packager  ModulePackager
	options   Options
	logger    logrus.FieldLogger
}

func NewBuilder(cat *catalog.Catalog, family *distro.Family, host Host, collector ResourceCollector, packager ModulePackager, options Options, logger logrus.FieldLogger) *Builder {
	return &Builder{
		catalog:   cat,
		family:    family,
		host:      host,
		collector: collector,
		packager:  packager,
		options:   options,
		logger:    logger,
	}
}

// StagingRoot returns the staging tree of a locale.
func (b *Builder) StagingRoot(code string) string {
	return filepath.Join(b.options.StagingDir, code)
}

type step struct {
	state State
	name  string
	run   func(ctx context.Context) error
}

// Build runs the whole pipeline for one locale. Failures are returned in
// the report, the state of other locales is never affected. ctx is checked
// before every step, a running step is allowed to finish.
func (b *Builder) Build(ctx context.Context, code string) Report {
	started := time.Now()
	if err := catalog.ValidCode(code); err != nil {
		report := Report{Code: code, State: Start, Reached: Start}
		return b.fail(b.logger.WithField("locale", code), report, started, err)
	}

	def, found := b.catalog.Resolve(code)
	report := Report{
		Code:      def.Code,
		State:     Start,
		Reached:   Start,
		Cataloged: found,
	}

	logger := b.logger.WithField("locale", def.Code)
	if !found {
		logger.WithField("layout", def.Layout).Warn("Locale not in catalog, using default keyboard layout")
	}

	staging := b.StagingRoot(def.Code)
	if err := os.RemoveAll(staging); err != nil {
		return b.fail(logger, report, started, err)
	}
	if err := os.MkdirAll(staging, 0755); err != nil {
		return b.fail(logger, report, started, err)
	}
	if !b.options.KeepStaging {
		defer func() {
			if err := os.RemoveAll(staging); err != nil {
				logger.WithError(err).Warn("Could not remove staging tree")
			}
		}()
	}

	layout := keyboard.NewLayout(def.Layout, def.LayoutDescription)
	steps := []step{
		{LocaleReconfigured, "reconfiguring locale", func(ctx context.Context) error {
			return b.reconfigure(logger, def, layout)
		}},
		{KeyboardDescriptorWritten, "writing keyboard descriptor", func(ctx context.Context) error {
			_, err := layout.WriteDescriptor(staging)
			return err
		}},
		{SystemResourcesCollected, "collecting system resources", func(ctx context.Context) error {
			return b.collect(ctx, &report, SystemPatterns(def), staging)
		}},
		{BrowserResourcesCollected, "collecting browser resources", func(ctx context.Context) error {
			return b.collect(ctx, &report, BrowserPatterns(def, b.family), staging)
		}},
		{OfficeResourcesCollected, "collecting office resources", func(ctx context.Context) error {
			return b.collect(ctx, &report, OfficePatterns(def), staging)
		}},
		{ArtifactsCollected, "collecting locale artifacts", func(ctx context.Context) error {
			return b.collect(ctx, &report, ArtifactPatterns(), staging)
		}},
		{Packaged, "packaging", func(ctx context.Context) error {
			if err := b.collector.SyncMetadata(ctx, staging); err != nil {
				return err
			}
			module, err := b.packager.Package(ctx, staging, def.Code)
			report.Module = module
			return err
		}},
	}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return b.fail(logger, report, started, err)
		}
		if err := s.run(ctx); err != nil {
			return b.fail(logger, report, started, fmt.Errorf("%s: %w", s.name, err))
		}
		report.Reached = s.state
		logger.WithField("state", s.state).Debug("Step done")
	}

	report.State = Done
	report.Reached = Done
	report.Duration = time.Since(started)
	logger.WithFields(logrus.Fields{
		"module":   report.Module,
		"files":    report.Collected.Files(),
		"duration": report.Duration.Round(time.Millisecond),
	}).Info("Language pack built")
	return report
}

func (b *Builder) fail(logger logrus.FieldLogger, report Report, started time.Time, err error) Report {
	report.State = Failed
	report.Err = err
	report.Error = err.Error()
	report.Duration = time.Since(started)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logger.WithField("state", report.Reached).Warn("Build canceled")
	} else {
		logger.WithError(err).WithField("state", report.Reached).Error("Build failed")
	}
	return report
}

// reconfigure switches the host to the locale and its keyboard layout.
// Both are required for the generated artifacts, the language packages
// only add optional resources.
func (b *Builder) reconfigure(logger logrus.FieldLogger, def catalog.Definition, layout keyboard.Layout) error {
	if err := b.host.Locales.Regenerate(def.Code); err != nil {
		return err
	}
	if err := b.host.Keyboard.Apply(layout); err != nil {
		return err
	}

	for _, p := range languagePackages(def, b.family) {
		if err := b.host.Packages.Install(p); err != nil {
			logger.WithError(err).WithField("package", p).Warn("Could not install language package")
		}
	}
	return nil
}

func (b *Builder) collect(ctx context.Context, report *Report, patterns []collect.Pattern, staging string) error {
	result, err := b.collector.Collect(ctx, patterns, staging)
	report.Collected.Add(result)
	if err != nil {
		return err
	}
	for _, f := range result.Failed() {
		var perr *collect.InvalidPatternError
		if errors.As(f.Err, &perr) {
			return perr
		}
	}
	return nil
}
