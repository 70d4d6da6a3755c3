// Package backup provides tar.gz-based backup and restore of the wificomp
// data directory: session files, the catalog database and the config file.
package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/HerbHall/wificomp/internal/sessionfile"
	"github.com/HerbHall/wificomp/internal/store"
)

// Archive layout.
const (
	dataPrefix = "data/"
	configName = "config/config.yaml"
)

// ErrExists is returned by Restore when a target file exists and force is
// not set.
var ErrExists = errors.New("file already exists")

// ErrUnsafePath is returned for archive entries escaping the target
// directory.
var ErrUnsafePath = errors.New("unsafe path in archive")

// Backup writes a tar.gz archive of dataDir's database and session tree,
// plus configPath when it exists. The WAL is checkpointed first so the
// copied database is consistent.
func Backup(ctx context.Context, dataDir, configPath, outputPath string) error {
	dbPath := filepath.Join(dataDir, store.DBFileName)
	hasDB := true
	if _, err := os.Stat(dbPath); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat database: %w", err)
		}
		hasDB = false
	}
	if hasDB {
		if err := checkpointWAL(ctx, dbPath); err != nil {
			return fmt.Errorf("WAL checkpoint failed: %w", err)
		}
	}

	outFile, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer outFile.Close()

	gw := gzip.NewWriter(outFile)
	tw := tar.NewWriter(gw)

	if hasDB {
		if err := addFileToTar(tw, dbPath, dataPrefix+store.DBFileName); err != nil {
			return fmt.Errorf("adding database to archive: %w", err)
		}
	}
	if err := addTreeToTar(ctx, tw, dataDir, sessionfile.SessionsDirName); err != nil {
		return fmt.Errorf("adding sessions to archive: %w", err)
	}
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := addFileToTar(tw, configPath, configName); err != nil {
				return fmt.Errorf("adding config to archive: %w", err)
			}
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("closing archive: %w", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("closing gzip: %w", err)
	}
	return outFile.Close()
}

// Restore extracts an archive made by Backup. Data entries land in dataDir
// and the config entry at configPath (skipped when configPath is empty).
// Existing files are kept unless force is set.
func Restore(ctx context.Context, archivePath, dataDir, configPath string, force bool) (int, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return 0, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return 0, fmt.Errorf("reading gzip: %w", err)
	}
	defer gr.Close()

	tr := tar.NewReader(gr)
	restored := 0
	for {
		if err := ctx.Err(); err != nil {
			return restored, err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return restored, nil
		}
		if err != nil {
			return restored, fmt.Errorf("reading archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		var target string
		switch {
		case hdr.Name == configName:
			if configPath == "" {
				continue
			}
			target = configPath
		case strings.HasPrefix(hdr.Name, dataPrefix):
			target, err = safeJoin(dataDir, strings.TrimPrefix(hdr.Name, dataPrefix))
			if err != nil {
				return restored, err
			}
		default:
			continue
		}

		if err := extractFile(tr, target, force); err != nil {
			return restored, err
		}
		restored++
	}
}

func safeJoin(root, name string) (string, error) {
	clean := path.Clean(name)
	if clean == "." || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return filepath.Join(root, filepath.FromSlash(clean)), nil
}

func extractFile(r io.Reader, target string, force bool) error {
	if !force {
		if _, err := os.Stat(target); err == nil {
			return fmt.Errorf("%w: %s", ErrExists, target)
		}
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating %s: %w", target, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", target, err)
	}
	return out.Close()
}

// checkpointWAL opens the database, runs a TRUNCATE checkpoint to flush the
// WAL, and closes the connection.
func checkpointWAL(ctx context.Context, dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

// addTreeToTar adds every regular file under dataDir/sub.
func addTreeToTar(ctx context.Context, tw *tar.Writer, dataDir, sub string) error {
	root := filepath.Join(dataDir, sub)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dataDir, p)
		if err != nil {
			return err
		}
		return addFileToTar(tw, p, dataPrefix+filepath.ToSlash(rel))
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// addFileToTar adds a single file to the tar archive under the given name.
func addFileToTar(tw *tar.Writer, filePath, archiveName string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = archiveName

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}

	_, err = io.Copy(tw, f)
	return err
}
