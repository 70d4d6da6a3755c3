package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/HerbHall/wificomp/internal/services"
	"github.com/HerbHall/wificomp/internal/sessionfile"
	"github.com/HerbHall/wificomp/internal/store"
	"github.com/HerbHall/wificomp/internal/testutil"
	"github.com/HerbHall/wificomp/pkg/models"
)

func seedDataDir(t *testing.T) (dataDir, configPath, sessionPath string) {
	t.Helper()
	dataDir = t.TempDir()

	st, err := store.Open(dataDir)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	if _, err := services.NewSQLiteExclusionRepository(context.Background(), st); err != nil {
		t.Fatalf("NewSQLiteExclusionRepository: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	dir := sessionfile.NewDir(dataDir, zap.NewNop())
	s := testutil.NewSession(testutil.NewAdapter("Intel"), 0, []models.Observation{testutil.NewObservation()})
	if sessionPath, err = dir.Save(s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	configPath = filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("log_level: debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	return dataDir, configPath, sessionPath
}

func TestBackupRestore(t *testing.T) {
	ctx := context.Background()
	dataDir, configPath, sessionPath := seedDataDir(t)
	archive := filepath.Join(t.TempDir(), "backup.tar.gz")

	if err := Backup(ctx, dataDir, configPath, archive); err != nil {
		t.Fatalf("Backup() error = %v", err)
	}

	target := t.TempDir()
	restoredConfig := filepath.Join(target, "cfg", "config.yaml")
	n, err := Restore(ctx, archive, filepath.Join(target, "data"), restoredConfig, false)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if n != 3 {
		t.Errorf("restored %d files, want 3 (database, one session, config)", n)
	}

	rel, err := filepath.Rel(dataDir, sessionPath)
	if err != nil {
		t.Fatal(err)
	}
	orig, err := os.ReadFile(sessionPath)
	if err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(filepath.Join(target, "data", rel))
	if err != nil {
		t.Fatalf("restored session: %v", err)
	}
	if string(got) != string(orig) {
		t.Error("restored session differs from original")
	}

	cfg, err := os.ReadFile(restoredConfig)
	if err != nil {
		t.Fatalf("restored config: %v", err)
	}
	if string(cfg) != "log_level: debug\n" {
		t.Errorf("config = %q", cfg)
	}
	if _, err := os.Stat(filepath.Join(target, "data", store.DBFileName)); err != nil {
		t.Errorf("database not restored: %v", err)
	}
}

func TestRestore_RefusesOverwrite(t *testing.T) {
	ctx := context.Background()
	dataDir, _, _ := seedDataDir(t)
	archive := filepath.Join(t.TempDir(), "backup.tar.gz")
	if err := Backup(ctx, dataDir, "", archive); err != nil {
		t.Fatalf("Backup() error = %v", err)
	}

	if _, err := Restore(ctx, archive, dataDir, "", false); !errors.Is(err, ErrExists) {
		t.Errorf("Restore() without force error = %v, want ErrExists", err)
	}
	if _, err := Restore(ctx, archive, dataDir, "", true); err != nil {
		t.Errorf("Restore() with force error = %v", err)
	}
}

func TestBackup_EmptyDataDir(t *testing.T) {
	ctx := context.Background()
	archive := filepath.Join(t.TempDir(), "backup.tar.gz")
	if err := Backup(ctx, t.TempDir(), "", archive); err != nil {
		t.Fatalf("Backup() error = %v", err)
	}

	n, err := Restore(ctx, archive, t.TempDir(), "", false)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if n != 0 {
		t.Errorf("restored %d files, want 0", n)
	}
}

func TestSafeJoin(t *testing.T) {
	for _, name := range []string{"../etc/passwd", "/abs", "..", "."} {
		if _, err := safeJoin("/data", name); !errors.Is(err, ErrUnsafePath) {
			t.Errorf("safeJoin(%q) error = %v, want ErrUnsafePath", name, err)
		}
	}
	got, err := safeJoin("/data", "sessions/Intel/x.json")
	if err != nil {
		t.Fatalf("safeJoin() error = %v", err)
	}
	if want := filepath.Join("/data", "sessions", "Intel", "x.json"); got != want {
		t.Errorf("safeJoin() = %q, want %q", got, want)
	}
}
