package ops

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"taskdash/internal/config"
	"taskdash/internal/model"
	"taskdash/internal/storage"
)

func TestBackupRestore_RoundTrip(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src")
	files := map[string]string{
		"tasks.json":          `{"nextId":1,"tasks":{"1":{"task_id":1,"task":"Draft agenda"}}}`,
		"projects.json":       `{"nextId":1,"projects":[{"id":1,"name":"P1"}]}`,
		"archive/2026-01.txt": "old notes",
	}
	for rel, content := range files {
		path := filepath.Join(src, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir parent %s: %v", path, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	// half-written store document is left out
	if err := os.WriteFile(filepath.Join(src, "tasks.json.tmp"), []byte("{"), 0o644); err != nil {
		t.Fatalf("write tmp: %v", err)
	}

	archive := filepath.Join(t.TempDir(), "backups", "backup.tar.gz")
	if err := Backup(src, archive); err != nil {
		t.Fatalf("backup failed: %v", err)
	}

	restoreDir := filepath.Join(t.TempDir(), "restore")
	if err := Restore(archive, restoreDir); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	got := map[string]string{}
	err := filepath.WalkDir(restoreDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(restoreDir, path)
		if err != nil {
			return err
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		got[filepath.ToSlash(rel)] = string(b)
		return nil
	})
	if err != nil {
		t.Fatalf("walk restore dir: %v", err)
	}
	if !reflect.DeepEqual(files, got) {
		t.Fatalf("restored files mismatch:\nwant=%v\ngot=%v", files, got)
	}

	a, err := Digest(src)
	if err != nil {
		t.Fatalf("digest src: %v", err)
	}
	b, err := Digest(restoreDir)
	if err != nil {
		t.Fatalf("digest restore: %v", err)
	}
	if a != b {
		t.Fatalf("digest mismatch: %s != %s", a, b)
	}
}

func TestBackup_RequiresArgs(t *testing.T) {
	if err := Backup("", "x.tar.gz"); err == nil {
		t.Fatal("expected error for empty data dir")
	}
	if err := Backup(filepath.Join(t.TempDir(), "missing"), filepath.Join(t.TempDir(), "x.tar.gz")); err == nil {
		t.Fatal("expected error for missing data dir")
	}
}

func TestRestore_RejectsPathTraversal(t *testing.T) {
	archive := filepath.Join(t.TempDir(), "bad.tar.gz")
	f, err := os.Create(archive)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}

	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	if err := tw.WriteHeader(&tar.Header{
		Name:     "../escape.txt",
		Typeflag: tar.TypeReg,
		Mode:     0o644,
		Size:     int64(len("bad")),
	}); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if _, err := tw.Write([]byte("bad")); err != nil {
		t.Fatalf("write body: %v", err)
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar writer: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}

	if err := Restore(archive, filepath.Join(t.TempDir(), "out")); err == nil {
		t.Fatalf("expected restore to reject path traversal archive")
	}
}

func TestRestore_RejectsNonEmptyTarget(t *testing.T) {
	src := t.TempDir()
	if err := os.WriteFile(filepath.Join(src, "tasks.json"), []byte(`{"from":"backup"}`), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	archive := filepath.Join(t.TempDir(), "backup.tar.gz")
	if err := Backup(src, archive); err != nil {
		t.Fatalf("backup failed: %v", err)
	}

	target := t.TempDir()
	live := map[string]string{
		"tasks.json":    `{"from":"live"}`,
		"projects.json": `{"nextId":1,"projects":[]}`,
	}
	for name, content := range live {
		if err := os.WriteFile(filepath.Join(target, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	err := Restore(archive, target)
	if !errors.Is(err, ErrTargetNotEmpty) {
		t.Fatalf("expected ErrTargetNotEmpty, got %v", err)
	}
	for name, content := range live {
		b, err := os.ReadFile(filepath.Join(target, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(b) != content {
			t.Fatalf("%s was modified: %s", name, b)
		}
	}

	// an existing but empty directory is a valid target
	empty := t.TempDir()
	if err := Restore(archive, empty); err != nil {
		t.Fatalf("restore into empty dir: %v", err)
	}
	if b, err := os.ReadFile(filepath.Join(empty, "tasks.json")); err != nil || string(b) != `{"from":"backup"}` {
		t.Fatalf("restored tasks.json = %q, %v", b, err)
	}
}

func TestDrill(t *testing.T) {
	for _, driver := range []string{config.DriverFile, config.DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			dataDir := t.TempDir()

			stores, err := storage.Open(ctx, config.Storage{Driver: driver, DataDir: dataDir})
			if err != nil {
				t.Fatalf("open store: %v", err)
			}
			for _, name := range []string{"Draft agenda", "Review"} {
				if _, err := stores.Tasks.Create(ctx, model.Task{Task: name}); err != nil {
					t.Fatalf("create task: %v", err)
				}
			}
			if _, err := stores.Projects.Create(ctx, model.Project{Name: "P1"}); err != nil {
				t.Fatalf("create project: %v", err)
			}
			if err := stores.Close(); err != nil {
				t.Fatalf("close store: %v", err)
			}

			rep, err := Drill(ctx, driver, dataDir, t.TempDir())
			if err != nil {
				t.Fatalf("drill failed: %v", err)
			}
			if rep.Tasks != 2 || rep.Projects != 1 {
				t.Fatalf("restored counts = %d tasks, %d projects; want 2, 1", rep.Tasks, rep.Projects)
			}
			if rep.Digest == "" {
				t.Fatal("empty digest")
			}
		})
	}
}

func TestDrill_MemoryDriver(t *testing.T) {
	if _, err := Drill(context.Background(), config.DriverMemory, t.TempDir(), t.TempDir()); err == nil {
		t.Fatal("memory driver has nothing to drill")
	}
}
