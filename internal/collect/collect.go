// Package collect copies locale resources selected by glob patterns into a
// staging tree that mirrors their absolute paths.
package collect

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const DefaultWorkers = 8

// GeneratedModTime is the modification time of staged entries that have no
// counterpart on the collected system, such as generated files.
var GeneratedModTime = time.Unix(0, 0).UTC()

// PatternResult describes what collecting one pattern did. A pattern
// matching nothing has zero counts and no error.
type PatternResult struct {
	Pattern Pattern
	Matches int
	Files   int
	Bytes   int64
	Err     error
}

// Result accumulates the outcome of one or more Collect calls.
type Result struct {
	Patterns []PatternResult
}

func (r *Result) Add(other Result) {
	r.Patterns = append(r.Patterns, other.Patterns...)
}

func (r Result) Matches() int {
	n := 0
	for _, p := range r.Patterns {
		n += p.Matches
	}
	return n
}

func (r Result) Files() int {
	n := 0
	for _, p := range r.Patterns {
		n += p.Files
	}
	return n
}

func (r Result) Bytes() int64 {
	var n int64
	for _, p := range r.Patterns {
		n += p.Bytes
	}
	return n
}

// Failed returns the patterns which could not be collected completely.
func (r Result) Failed() []PatternResult {
	var failed []PatternResult
	for _, p := range r.Patterns {
		if p.Err != nil {
			failed = append(failed, p)
		}
	}
	return failed
}

// Category returns the part of the result belonging to one category.
func (r Result) Category(c Category) Result {
	var sub Result
	for _, p := range r.Patterns {
		if p.Pattern.Category == c {
			sub.Patterns = append(sub.Patterns, p)
		}
	}
	return sub
}

type Collector struct {
	sourceRoot string
	workers    int
	logger     logrus.FieldLogger
}

// New creates a collector reading from sourceRoot, "/" for the running
// system. workers bounds the number of files copied in parallel.
func New(sourceRoot string, workers int, logger logrus.FieldLogger) *Collector {
	if sourceRoot == "" {
		sourceRoot = "/"
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Collector{
		sourceRoot: sourceRoot,
		workers:    workers,
		logger:     logger,
	}
}

// Collect copies every entry matched by patterns to destinationRoot joined
// with the entry's absolute path. Collection is best-effort: patterns
// matching nothing are skipped silently and a pattern failing to copy is
// recorded in the result without stopping the others. The returned error
// is only set when ctx is done.
func (c *Collector) Collect(ctx context.Context, patterns []Pattern, destinationRoot string) (Result, error) {
	var result Result
	for _, p := range patterns {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		pr := c.collectPattern(ctx, p, destinationRoot)
		result.Patterns = append(result.Patterns, pr)

		logger := c.logger.WithFields(logrus.Fields{
			"category": p.Category,
			"pattern":  p.Glob,
		})
		switch {
		case pr.Err != nil:
			logger.WithError(pr.Err).Warn("Could not collect resources")
		case pr.Matches == 0:
			logger.Debug("No resources found")
		default:
			logger.WithFields(logrus.Fields{
				"matches": pr.Matches,
				"files":   pr.Files,
				"bytes":   pr.Bytes,
			}).Debug("Collected resources")
		}
	}
	return result, ctx.Err()
}

func (c *Collector) collectPattern(ctx context.Context, p Pattern, destinationRoot string) PatternResult {
	pr := PatternResult{Pattern: p}

	matches, err := resolve(c.sourceRoot, p)
	if err != nil {
		pr.Err = err
		return pr
	}
	pr.Matches = len(matches)

	// a failed match never keeps the other matches of the pattern out
	var errs *multierror.Error
	for _, m := range matches {
		files, bytes, err := c.copyEntry(ctx, hostPath(c.sourceRoot, m), filepath.Join(destinationRoot, filepath.FromSlash(m)))
		pr.Files += files
		pr.Bytes += bytes
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("copying %s: %w", m, err))
		}
	}
	pr.Err = errs.ErrorOrNil()
	return pr
}

type dirEntry struct {
	dst  string
	info fs.FileInfo
}

type fileEntry struct {
	src  string
	dst  string
	info fs.FileInfo
}

// copyEntry copies a file, symlink or whole directory tree. Directories are
// created first, regular files are copied in parallel, and directory
// metadata is applied last so that copying does not disturb it.
func (c *Collector) copyEntry(ctx context.Context, src, dst string) (int, int64, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, 0, err
	}

	var dirs []dirEntry
	var files []fileEntry
	var links int

	err := filepath.Walk(src, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch mode := info.Mode(); {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			dirs = append(dirs, dirEntry{dst: target, info: info})
		case mode&fs.ModeSymlink != 0:
			if err := copySymlink(p, target, info); err != nil {
				return err
			}
			links++
		case mode.IsRegular():
			files = append(files, fileEntry{src: p, dst: target, info: info})
		default:
			// device nodes, sockets and fifos are never locale resources
			c.logger.WithField("path", p).Debug("Skipping special file")
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	var copied atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for _, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n, err := copyFile(f.src, f.dst, f.info)
			copied.Add(n)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return links, copied.Load(), err
	}

	// deepest first, so setting a parent's mtime is not undone by its children
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].dst > dirs[j].dst })
	for _, d := range dirs {
		if err := applyMetadata(d.dst, d.info); err != nil {
			return links + len(files), copied.Load(), err
		}
	}

	return links + len(files), copied.Load(), nil
}

func copyFile(src, dst string, info fs.FileInfo) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, in)
	if err != nil {
		out.Close()
		return n, err
	}
	if err := out.Close(); err != nil {
		return n, err
	}
	return n, applyMetadata(dst, info)
}

func copySymlink(src, dst string, info fs.FileInfo) error {
	target, err := os.Readlink(src)
	if err != nil {
		return err
	}
	// overlapping patterns may have created the link already
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Symlink(target, dst); err != nil {
		return err
	}
	return chown(dst, info, true)
}

// applyMetadata copies permission bits, modification time and, when running
// as root, ownership. Matching mtimes keep the packed modules reproducible.
func applyMetadata(dst string, info fs.FileInfo) error {
	if err := chown(dst, info, false); err != nil {
		return err
	}
	if err := os.Chmod(dst, info.Mode()&(fs.ModePerm|fs.ModeSetuid|fs.ModeSetgid|fs.ModeSticky)); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

func chown(dst string, info fs.FileInfo, link bool) error {
	if os.Geteuid() != 0 {
		return nil
	}
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return nil
	}
	if link {
		return os.Lchown(dst, int(st.Uid), int(st.Gid))
	}
	return os.Chown(dst, int(st.Uid), int(st.Gid))
}

// SyncMetadata prepares a finished staging tree for packing. Directories
// created on the way to a match take over the metadata of the directory
// they mirror and entries without a counterpart get GeneratedModTime, so
// staging the same resources twice gives identical trees.
func (c *Collector) SyncMetadata(ctx context.Context, destinationRoot string) error {
	type entry struct {
		name string
		abs  string
		dir  bool
	}
	var entries []entry
	err := filepath.WalkDir(destinationRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		rel, err := filepath.Rel(destinationRoot, p)
		if err != nil {
			return err
		}
		entries = append(entries, entry{
			name: p,
			abs:  path.Join("/", filepath.ToSlash(rel)),
			dir:  d.IsDir(),
		})
		return nil
	})
	if err != nil {
		return err
	}

	// children first, setting them never touches a parent's mtime again
	for i := len(entries) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return err
		}
		e := entries[i]
		info, err := os.Stat(hostPath(c.sourceRoot, e.abs))
		switch {
		case err == nil && e.dir && info.IsDir():
			err = applyMetadata(e.name, info)
		case err == nil && !e.dir && info.Mode().IsRegular():
			err = os.Chtimes(e.name, info.ModTime(), info.ModTime())
		default:
			err = os.Chtimes(e.name, GeneratedModTime, GeneratedModTime)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
