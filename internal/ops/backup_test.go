package ops

import (
	"archive/tar"
	"compress/gzip"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
)

func TestBackupRestoreDataDir_RoundTrip(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src")
	if err := os.MkdirAll(filepath.Join(src, "exports"), 0o755); err != nil {
		t.Fatalf("mkdir src: %v", err)
	}

	csv := "date,adjusted_load\n2026-03-02,7.5\n"
	if err := os.WriteFile(filepath.Join(src, "exports", "loads.csv"), []byte(csv), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(src, "visionark.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT NOT NULL)",
		"INSERT INTO notes (body) VALUES ('water plants'), ('pay rent')",
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}

	// The connection stays open across the backup, the shape a live
	// server presents: the inserts may still sit in the WAL.
	archive := filepath.Join(t.TempDir(), "backup.tar.gz")
	if err := BackupDataDir(src, archive); err != nil {
		t.Fatalf("backup failed: %v", err)
	}

	restoreDir := filepath.Join(t.TempDir(), "restore")
	if err := RestoreDataDir(archive, restoreDir); err != nil {
		t.Fatalf("restore failed: %v", err)
	}

	for _, sidecar := range []string{"visionark.db-wal", "visionark.db-shm"} {
		if _, err := os.Stat(filepath.Join(restoreDir, sidecar)); !os.IsNotExist(err) {
			t.Fatalf("sidecar %s must not be restored (stat err: %v)", sidecar, err)
		}
	}

	got, err := os.ReadFile(filepath.Join(restoreDir, "exports", "loads.csv"))
	if err != nil {
		t.Fatalf("read restored csv: %v", err)
	}
	if string(got) != csv {
		t.Fatalf("restored csv differs: want %q got %q", csv, got)
	}

	restoredPath := filepath.Join(restoreDir, "visionark.db")
	if err := CheckDatabase(restoredPath); err != nil {
		t.Fatalf("restored database failed integrity check: %v", err)
	}

	restored, err := sql.Open("sqlite", restoredPath)
	if err != nil {
		t.Fatalf("open restored db: %v", err)
	}
	defer restored.Close()

	var n int
	if err := restored.QueryRow("SELECT COUNT(*) FROM notes").Scan(&n); err != nil {
		t.Fatalf("count restored rows: %v", err)
	}
	if n != 2 {
		t.Fatalf("restored row count: want 2 got %d", n)
	}
}

func TestRestoreDataDir_RemovesStaleSidecars(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatalf("mkdir src: %v", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(src, "visionark.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if _, err := db.Exec("CREATE TABLE t (x INTEGER)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close db: %v", err)
	}

	archive := filepath.Join(t.TempDir(), "backup.tar.gz")
	if err := BackupDataDir(src, archive); err != nil {
		t.Fatalf("backup failed: %v", err)
	}

	// A target left behind by a crashed server: stale WAL next to
	// where the database will land.
	restoreDir := filepath.Join(t.TempDir(), "restore")
	if err := os.MkdirAll(restoreDir, 0o755); err != nil {
		t.Fatalf("mkdir restore dir: %v", err)
	}
	stale := filepath.Join(restoreDir, "visionark.db-wal")
	if err := os.WriteFile(stale, []byte("stale journal"), 0o644); err != nil {
		t.Fatalf("write stale wal: %v", err)
	}

	if err := RestoreDataDir(archive, restoreDir); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("stale wal must be removed by restore (stat err: %v)", err)
	}
	if err := CheckDatabase(filepath.Join(restoreDir, "visionark.db")); err != nil {
		t.Fatalf("restored database failed integrity check: %v", err)
	}
}

func TestRestoreDataDir_RejectsPathTraversal(t *testing.T) {
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

	if err := RestoreDataDir(archive, filepath.Join(t.TempDir(), "out")); err == nil {
		t.Fatalf("expected restore to reject path traversal archive")
	}
}
