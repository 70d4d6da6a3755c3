package sessionfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/wificomp/pkg/models"
)

// Directory names under the data directory.
const (
	SessionsDirName   = "sessions"
	QuarantineDirName = "quarantine"
	fileExt           = ".json"
	fileTimeLayout    = "20060102_150405"
)

// Indexer receives catalog records for sessions found on disk.
type Indexer interface {
	Upsert(ctx context.Context, info *models.SessionInfo) error
}

// Dir manages session files laid out as
// <data>/sessions/<adapter safe name>/YYYYMMDD_HHMMSS.json.
type Dir struct {
	dataDir string
	codec   *Codec
	logger  *zap.Logger
}

// NewDir returns a Dir rooted at dataDir. Directories are created lazily.
func NewDir(dataDir string, logger *zap.Logger) *Dir {
	return &Dir{
		dataDir: dataDir,
		codec:   NewCodec(logger),
		logger:  logger,
	}
}

// Codec returns the codec used for reading and writing files.
func (d *Dir) Codec() *Codec { return d.codec }

// SessionsRoot is the directory holding one subdirectory per adapter.
func (d *Dir) SessionsRoot() string {
	return filepath.Join(d.dataDir, SessionsDirName)
}

// PathFor returns the preferred file for a session. The name derives from
// the session start time, to the second.
func (d *Dir) PathFor(s *models.Session) string {
	name := s.StartedAt.UTC().Format(fileTimeLayout) + fileExt
	return filepath.Join(d.SessionsRoot(), s.Adapter.SafeName(), name)
}

// target returns PathFor(s), or the first numbered variant of it
// (_2, _3, ...) that does not hold a different session. Saving the same
// session again resolves to the same file.
func (d *Dir) target(s *models.Session) string {
	base := d.PathFor(s)
	stem := strings.TrimSuffix(base, fileExt)
	for n := 1; ; n++ {
		path := base
		if n > 1 {
			path = fmt.Sprintf("%s_%d%s", stem, n, fileExt)
		}
		if !d.holdsOther(path, s) {
			return path
		}
		d.logger.Debug("session file name taken", zap.String("path", path))
	}
}

// holdsOther reports whether path exists and holds a session other than s.
// Unreadable files count as taken.
func (d *Dir) holdsOther(path string, s *models.Session) bool {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false
	}
	if err != nil {
		return true
	}
	defer f.Close()

	existing, err := d.codec.Decode(f)
	if err != nil {
		return true
	}
	same := existing.StartedAt.Equal(s.StartedAt) && existing.Adapter.Interface == s.Adapter.Interface
	return !same
}

// Save writes s atomically and returns its path. A session started in the
// same second as an existing one on the same adapter gets a numbered name.
func (d *Dir) Save(s *models.Session) (string, error) {
	path := d.target(s)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create adapter dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := d.codec.Encode(tmp, s); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("rename session file: %w", err)
	}

	d.logger.Info("session saved",
		zap.String("path", path),
		zap.Int("scans", len(s.Scans)),
	)
	return path, nil
}

// Load decodes the session at path and reports on its integrity.
func (d *Dir) Load(path string) (*models.Session, Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Report{}, fmt.Errorf("open session %q: %w", path, err)
	}
	defer f.Close()

	s, err := d.codec.Decode(f)
	if err != nil {
		return nil, Report{}, fmt.Errorf("load %q: %w", path, err)
	}
	rep := Validate(s)
	for _, w := range rep.Warnings {
		d.logger.Warn("session warning", zap.String("path", path), zap.String("warning", w))
	}
	return s, rep, nil
}

// ListAdapters returns adapter directories that hold at least one session,
// sorted by name ignoring case.
func (d *Dir) ListAdapters() ([]models.AdapterSummary, error) {
	entries, err := os.ReadDir(d.SessionsRoot())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sessions dir: %w", err)
	}

	var out []models.AdapterSummary
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		files, err := d.ListSessions(e.Name())
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			continue
		}
		out = append(out, models.AdapterSummary{Name: e.Name(), SessionCount: len(files)})
	}
	slices.SortFunc(out, func(a, b models.AdapterSummary) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return out, nil
}

// ListSessions returns the session files for one adapter directory, newest
// modification first. Equal times fall back to name order, newest first.
func (d *Dir) ListSessions(adapterDir string) ([]string, error) {
	dir := filepath.Join(d.SessionsRoot(), adapterDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read adapter dir %q: %w", adapterDir, err)
	}

	type file struct {
		path string
		mod  time.Time
	}
	var files []file
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != fileExt {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, file{path: filepath.Join(dir, e.Name()), mod: info.ModTime()})
	}
	slices.SortFunc(files, func(a, b file) int {
		if c := b.mod.Compare(a.mod); c != 0 {
			return c
		}
		return strings.Compare(b.path, a.path)
	})

	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.path
	}
	return out, nil
}

// AllSessions lists every session file across adapters.
func (d *Dir) AllSessions() ([]string, error) {
	adapters, err := d.ListAdapters()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, a := range adapters {
		files, err := d.ListSessions(a.Name)
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}
	return out, nil
}

// Quarantine moves a session file out of the sessions tree so it no longer
// appears in listings. It returns the new path.
func (d *Dir) Quarantine(path string) (string, error) {
	qdir := filepath.Join(d.dataDir, QuarantineDirName)
	if err := os.MkdirAll(qdir, 0o750); err != nil {
		return "", fmt.Errorf("create quarantine dir: %w", err)
	}
	adapter := filepath.Base(filepath.Dir(path))
	dest := filepath.Join(qdir, adapter+"_"+filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		return "", fmt.Errorf("quarantine %q: %w", path, err)
	}
	d.logger.Warn("session quarantined", zap.String("from", path), zap.String("to", dest))
	return dest, nil
}

// Delete removes a session file.
func (d *Dir) Delete(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete session %q: %w", path, err)
	}
	d.logger.Info("session deleted", zap.String("path", path))
	return nil
}

// Info builds the catalog record for a session stored at path.
func Info(path string, s *models.Session, r Report) *models.SessionInfo {
	return &models.SessionInfo{
		Path:        path,
		AdapterName: s.Adapter.DisplayName(),
		Interface:   s.Adapter.Interface,
		Chipset:     s.Adapter.Chipset,
		Label:       s.Adapter.Label,
		StartedAt:   s.StartedAt,
		ScanCount:   r.ScanCount,
		APCount:     r.APCount,
	}
}

// Reindex loads every session file and upserts its catalog record. Files
// that fail to load are logged and skipped. When quarantineEmpty is set,
// sessions without scans are moved to the quarantine directory and indexed
// as quarantined.
func (d *Dir) Reindex(ctx context.Context, idx Indexer, quarantineEmpty bool) (int, error) {
	paths, err := d.AllSessions()
	if err != nil {
		return 0, err
	}

	indexed := 0
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return indexed, err
		}
		s, rep, err := d.Load(p)
		if err != nil {
			d.logger.Warn("skipping unreadable session", zap.String("path", p), zap.Error(err))
			continue
		}
		info := Info(p, s, rep)
		if quarantineEmpty && !rep.HasScans {
			dest, err := d.Quarantine(p)
			if err != nil {
				return indexed, err
			}
			info.Path = dest
			info.Quarantined = true
		}
		if err := idx.Upsert(ctx, info); err != nil {
			return indexed, fmt.Errorf("index %q: %w", p, err)
		}
		indexed++
	}
	return indexed, nil
}
