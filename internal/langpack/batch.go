package langpack

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/osbuild/langpack-composer/internal/catalog"
	"github.com/osbuild/langpack-composer/internal/collect"
	"github.com/osbuild/langpack-composer/internal/keyboard"
	"github.com/osbuild/langpack-composer/internal/prometheus"
	"github.com/osbuild/langpack-composer/internal/squashfs"
)

const (
	SkipHostLocale   = "host default locale"
	SkipModuleExists = "module exists"
)

// DiscoverLocales lists the locales installed on the host.
func DiscoverLocales(ctx context.Context, locales LocaleSystem) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	codes, err := locales.Available()
	if err != nil {
		return nil, fmt.Errorf("cannot list installed locales: %w", err)
	}
	return codes, nil
}

// Batch builds the packs of several locales one after another. The host
// locale and keyboard are shared by all builds, so they never run in
// parallel.
type Batch struct {
	builder    *Builder
	hostLocale string
	logger     logrus.FieldLogger
}

// NewBatch creates a batch that skips hostLocale, the locale the live
// system itself runs with, and restores it when done.
func NewBatch(builder *Builder, hostLocale string, logger logrus.FieldLogger) *Batch {
	return &Batch{
		builder:    builder,
		hostLocale: catalog.TrimEncoding(hostLocale),
		logger:     logger,
	}
}

// Run builds every locale in codes and returns one report per locale that
// was looked at. The error combines all failed locales; a failed locale
// never stops the batch, a canceled ctx does.
func (b *Batch) Run(ctx context.Context, codes []string) ([]Report, error) {
	var reports []Report
	var result *multierror.Error

	seen := make(map[string]bool)
	for _, raw := range codes {
		invalid := catalog.ValidCode(raw)
		code := catalog.TrimEncoding(raw)
		if invalid != nil {
			code = raw
		}
		if seen[code] {
			continue
		}
		seen[code] = true

		if err := ctx.Err(); err != nil {
			result = multierror.Append(result, err)
			break
		}

		var report Report
		if invalid != nil {
			report = b.reject(code, invalid)
		} else {
			report = b.buildOne(ctx, code)
		}
		reports = append(reports, report)
		if report.Failed() {
			result = multierror.Append(result, fmt.Errorf("%s: %w", report.Code, report.Err))
		}
	}

	b.restoreHost()
	prometheus.BatchFinished(time.Now())

	built, failed, skipped := summarize(reports)
	b.logger.WithFields(logrus.Fields{
		"built":   built,
		"failed":  failed,
		"skipped": skipped,
	}).Info("Batch finished")

	return reports, result.ErrorOrNil()
}

func (b *Batch) buildOne(ctx context.Context, code string) Report {
	logger := b.logger.WithField("locale", code)

	if code == b.hostLocale {
		logger.Info("Skipping the host default locale")
		prometheus.ModuleSkipped()
		return Report{Code: code, State: Skipped, Reached: Start, SkipReason: SkipHostLocale}
	}

	exists, err := b.builder.packager.Exists(code)
	if err != nil {
		logger.WithError(err).Warn("Could not check for an existing module")
	} else if exists {
		logger.WithField("module", b.builder.packager.Path(code)).Info("Module exists, skipping")
		prometheus.ModuleSkipped()
		return Report{Code: code, State: Skipped, Reached: Start, SkipReason: SkipModuleExists}
	}

	started := time.Now()
	report := b.builder.Build(ctx, code)
	for _, c := range collect.Categories() {
		sub := report.Collected.Category(c)
		prometheus.CollectMetrics(string(c), int64(sub.Files()), sub.Bytes(), len(sub.Failed()))
	}

	switch {
	case report.State == Done:
		prometheus.ModuleBuilt(started)
	case errors.Is(report.Err, squashfs.ErrModuleExists):
		// published by someone else while this build ran
		report.State = Skipped
		report.SkipReason = SkipModuleExists
		report.Err = nil
		report.Error = ""
		prometheus.ModuleSkipped()
	default:
		prometheus.ModuleFailed(started)
	}
	return report
}

// reject reports a code that cannot be built without touching the host or
// any staging tree.
func (b *Batch) reject(code string, err error) Report {
	b.logger.WithError(err).WithField("locale", code).Error("Invalid locale code")
	prometheus.ModuleFailed(time.Now())
	return Report{
		Code:    code,
		State:   Failed,
		Reached: Start,
		Err:     err,
		Error:   err.Error(),
	}
}

// restoreHost switches the host back to its own locale and the plain "us"
// keyboard without a group toggle. Failures are logged only, every module
// is already published.
func (b *Batch) restoreHost() {
	host := b.builder.host
	logger := b.logger.WithField("locale", b.hostLocale)

	if err := host.Locales.Regenerate(b.hostLocale); err != nil {
		logger.WithError(err).Warn("Could not restore the host locale")
	}
	if err := host.Keyboard.Apply(keyboard.Layout{Description: catalog.DefaultLayoutDescription}); err != nil {
		logger.WithError(err).Warn("Could not restore the host keyboard layout")
	}
}

func summarize(reports []Report) (built, failed, skipped int) {
	for _, r := range reports {
		switch r.State {
		case Done:
			built++
		case Failed:
			failed++
		case Skipped:
			skipped++
		}
	}
	return
}
