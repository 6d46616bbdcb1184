// Package squashfs packs a staging tree into a compressed live system module.
package squashfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const (
	ModulePrefix    = "99-langpack-"
	ModuleExtension = ".sb"

	DefaultCompression = "xz"
	DefaultBlockSize   = "1024K"
)

// ErrModuleExists is returned instead of replacing a published module.
var ErrModuleExists = errors.New("module already exists")

// var alias for exec.Command() that can be mocked for testing
var execCommand = exec.Command

// ModuleName returns the file name of the module for a locale,
// 99-langpack-fr-fr-xz.sb for fr_FR.
func ModuleName(code, compression string) string {
	if compression == "" {
		compression = DefaultCompression
	}
	name := strings.ToLower(strings.ReplaceAll(code, "_", "-"))
	return ModulePrefix + name + "-" + compression + ModuleExtension
}

// BCJFilter returns the xz branch filter matching a Debian architecture or
// an empty string when there is none.
func BCJFilter(arch string) string {
	switch arch {
	case "amd64", "i386":
		return "x86"
	case "arm64", "armhf", "armel":
		return "arm"
	case "ppc64el", "powerpc":
		return "powerpc"
	}
	return ""
}

type Options struct {
	Compression string
	BlockSize   string
	// Arch is the DISTRIBUTION_ARCH of the image
	Arch string
}

type Packager struct {
	outputDir string
	options   Options
	logger    logrus.FieldLogger
}

func New(outputDir string, options Options, logger logrus.FieldLogger) *Packager {
	if options.Compression == "" {
		options.Compression = DefaultCompression
	}
	if options.BlockSize == "" {
		options.BlockSize = DefaultBlockSize
	}
	return &Packager{
		outputDir: outputDir,
		options:   options,
		logger:    logger,
	}
}

// Path returns where the module of a locale is published.
func (p *Packager) Path(code string) string {
	return filepath.Join(p.outputDir, ModuleName(code, p.options.Compression))
}

func (p *Packager) Exists(code string) (bool, error) {
	_, err := os.Stat(p.Path(code))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (p *Packager) args(source, dest string) []string {
	args := []string{
		source, dest,
		"-comp", p.options.Compression,
		"-b", p.options.BlockSize,
		"-always-use-fragments",
		"-noappend",
		"-no-progress",
	}
	if p.options.Compression == "xz" {
		if filter := BCJFilter(p.options.Arch); filter != "" {
			args = append(args, "-Xbcj", filter)
		}
	}
	return args
}

// Package compresses stagingRoot into the module of code. The image is built
// under a hidden name and only published if no module exists for the locale.
func (p *Packager) Package(ctx context.Context, stagingRoot, code string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return "", err
	}

	final := p.Path(code)
	tmp := filepath.Join(p.outputDir, "."+uuid.NewString()+ModuleExtension+".tmp")

	var stderr bytes.Buffer
	cmd := execCommand("mksquashfs", p.args(stagingRoot, tmp)...)
	cmd.Stderr = &stderr

	logger := p.logger.WithField("module", filepath.Base(final))
	logger.WithField("command", strings.Join(cmd.Args, " ")).Debug("Running")
	if err := cmd.Run(); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("mksquashfs failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	if err := publish(tmp, final); err != nil {
		_ = os.Remove(tmp)
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%s: %w", final, ErrModuleExists)
		}
		return "", err
	}

	logger.Info("Module published")
	return final, nil
}

// publish moves tmp to final without ever replacing final.
func publish(tmp, final string) error {
	err := unix.Renameat2(unix.AT_FDCWD, tmp, unix.AT_FDCWD, final, unix.RENAME_NOREPLACE)
	if err == nil {
		return nil
	}
	if errors.Is(err, unix.EEXIST) {
		return os.ErrExist
	}
	if !errors.Is(err, unix.EINVAL) && !errors.Is(err, unix.ENOSYS) {
		return err
	}

	// the file system has no RENAME_NOREPLACE, a hard link fails the same way
	if err := os.Link(tmp, final); err != nil {
		if errors.Is(err, os.ErrExist) {
			return os.ErrExist
		}
		return err
	}
	return os.Remove(tmp)
}
