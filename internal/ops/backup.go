// Package ops backs up and restores the taskdash data directory.
package ops

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"taskdash/internal/config"
	"taskdash/internal/storage"
	"taskdash/internal/task"
)

// skipFile reports files that are never part of a backup: half-written
// store documents and sqlite side files.
func skipFile(rel string) bool {
	return strings.HasSuffix(rel, ".tmp") ||
		strings.HasSuffix(rel, "-journal") ||
		strings.HasSuffix(rel, "-wal") ||
		strings.HasSuffix(rel, "-shm")
}

// Backup writes dataDir as a gzipped tarball to archivePath.
func Backup(dataDir, archivePath string) error {
	if strings.TrimSpace(dataDir) == "" || strings.TrimSpace(archivePath) == "" {
		return fmt.Errorf("data dir and archive path are required")
	}
	dataDir = filepath.Clean(strings.TrimSpace(dataDir))
	archivePath = filepath.Clean(strings.TrimSpace(archivePath))
	info, err := os.Stat(dataDir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dataDir)
	}
	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)

	walkErr := filepath.WalkDir(dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == dataDir {
			return nil
		}
		rel, err := filepath.Rel(dataDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.Type()&os.ModeSymlink != 0 || skipFile(rel) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = rel
		if info.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(tw, src)
		return err
	})

	// close in order so a failed flush is reported
	for _, closeErr := range []error{walkErr, tw.Close(), gz.Close(), f.Close()} {
		if closeErr != nil {
			return closeErr
		}
	}
	return nil
}

// ErrTargetNotEmpty is returned when a restore would unpack over existing files.
var ErrTargetNotEmpty = errors.New("restore target is not empty")

// Restore unpacks archivePath into targetDir, which must be missing or
// empty. Entries escaping targetDir are rejected.
func Restore(archivePath, targetDir string) error {
	if strings.TrimSpace(archivePath) == "" || strings.TrimSpace(targetDir) == "" {
		return fmt.Errorf("archive path and target dir are required")
	}
	archivePath = filepath.Clean(strings.TrimSpace(archivePath))
	targetDir = filepath.Clean(strings.TrimSpace(targetDir))
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return err
	}
	entries, err := os.ReadDir(targetDir)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return fmt.Errorf("%w: %s has %d entries", ErrTargetNotEmpty, targetDir, len(entries))
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		rel, err := entryPath(hdr.Name)
		if err != nil {
			return err
		}
		out := filepath.Join(targetDir, rel)

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(out, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := writeEntry(out, tr, os.FileMode(hdr.Mode).Perm()); err != nil {
				return err
			}
		}
	}
}

func writeEntry(path string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	dst, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, r); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}

func entryPath(name string) (string, error) {
	name = filepath.Clean(filepath.FromSlash(strings.TrimSpace(name)))
	switch {
	case name == "." || name == "":
		return "", fmt.Errorf("invalid archive entry %q", name)
	case filepath.IsAbs(name):
		return "", fmt.Errorf("absolute archive entry %q", name)
	case name == ".." || strings.HasPrefix(name, ".."+string(filepath.Separator)):
		return "", fmt.Errorf("archive entry escapes target: %q", name)
	}
	return name, nil
}

// Digest hashes every backed-up file under root, names included.
func Digest(root string) (string, error) {
	root = filepath.Clean(root)
	var entries []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !skipFile(rel) {
			entries = append(entries, rel)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	sort.Strings(entries)

	h := sha256.New()
	for _, rel := range entries {
		_, _ = io.WriteString(h, rel+"\n")
		b, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return "", err
		}
		_, _ = h.Write(b)
		_, _ = io.WriteString(h, "\n")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

type DrillReport struct {
	Archive    string
	RestoreDir string
	Digest     string
	Tasks      int
	Projects   int
}

// Drill backs up dataDir, restores the archive under workDir, checks the
// restored tree hashes the same and opens it with the given driver to
// count what came back.
func Drill(ctx context.Context, driver, dataDir, workDir string) (DrillReport, error) {
	switch driver {
	case config.DriverFile, config.DriverSQLite:
	default:
		return DrillReport{}, fmt.Errorf("driver %q keeps no data in the data dir", driver)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return DrillReport{}, err
	}

	ts := time.Now().UTC().Format("20060102T150405Z")
	rep := DrillReport{
		Archive:    filepath.Join(workDir, "taskdash-drill-"+ts+".tar.gz"),
		RestoreDir: filepath.Join(workDir, "taskdash-drill-restore-"+ts),
	}
	if err := Backup(dataDir, rep.Archive); err != nil {
		return rep, fmt.Errorf("backup: %w", err)
	}
	if err := Restore(rep.Archive, rep.RestoreDir); err != nil {
		return rep, fmt.Errorf("restore: %w", err)
	}

	src, err := Digest(dataDir)
	if err != nil {
		return rep, err
	}
	restored, err := Digest(rep.RestoreDir)
	if err != nil {
		return rep, err
	}
	if src != restored {
		return rep, fmt.Errorf("digest mismatch after restore: src=%s restored=%s", src, restored)
	}
	rep.Digest = src

	stores, err := storage.Open(ctx, config.Storage{Driver: driver, DataDir: rep.RestoreDir})
	if err != nil {
		return rep, fmt.Errorf("open restored store: %w", err)
	}
	defer stores.Close()

	tasks, err := stores.Tasks.List(ctx, task.ListFilter{})
	if err != nil {
		return rep, err
	}
	projects, err := stores.Projects.List(ctx)
	if err != nil {
		return rep, err
	}
	rep.Tasks, rep.Projects = len(tasks), len(projects)
	return rep, nil
}
