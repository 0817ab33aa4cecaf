// Package backup takes consistent snapshots of the live database and restores
// them. Every artifact carries a BLAKE2b-256 checksum in a JSON manifest next
// to the snapshot file.
package backup

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	_ "modernc.org/sqlite"

	"github.com/erazemk/zastavljalnica/internal/dates"
)

// Errors returned by Restore.
var (
	ErrChecksumMismatch = errors.New("backup checksum mismatch")
	ErrIntegrity        = errors.New("backup failed integrity check")
)

const manifestSuffix = ".json"

// Artifact describes one snapshot file.
type Artifact struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Bytes     int64     `json:"bytes"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
}

// Result is the outcome of a restore, including the integrity check output.
type Result struct {
	Target string   `json:"target"`
	Output []string `json:"output"`
}

// Service creates and restores snapshots.
type Service struct {
	db      *sql.DB
	dir     string
	timeout time.Duration
	clock   dates.Clock
}

// New returns a backup service writing snapshots of db into dir. Each
// operation is bounded by timeout.
func New(db *sql.DB, dir string, timeout time.Duration, clock dates.Clock) *Service {
	return &Service{db: db, dir: dir, timeout: timeout, clock: clock}
}

// Create writes a snapshot of the live database and its manifest.
func (s *Service) Create(ctx context.Context) (*Artifact, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating backup directory: %w", err)
	}

	now := s.clock.Now().UTC().Truncate(time.Second)
	id := uuid.NewString()
	name := fmt.Sprintf("zastavljalnica-%s-%s.db", now.Format("20060102T150405Z"), id[:8])
	path := filepath.Join(s.dir, name)

	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("snapshotting database: %w", err)
	}

	sum, size, err := checksum(path)
	if err != nil {
		os.Remove(path)
		return nil, err
	}

	a := &Artifact{ID: id, Path: path, Bytes: size, Checksum: sum, CreatedAt: now}
	if err := writeManifest(a); err != nil {
		os.Remove(path)
		return nil, err
	}

	slog.Info("backup created", "id", id, "path", path, "bytes", size)
	return a, nil
}

// LoadArtifact reads the manifest of a snapshot. path may name the snapshot
// or its manifest.
func LoadArtifact(path string) (*Artifact, error) {
	if !strings.HasSuffix(path, manifestSuffix) {
		path += manifestSuffix
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading backup manifest: %w", err)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parsing backup manifest: %w", err)
	}
	if !filepath.IsAbs(a.Path) {
		a.Path = filepath.Join(filepath.Dir(path), filepath.Base(a.Path))
	}
	return &a, nil
}

// Restore verifies a snapshot and replaces target with it. The server must
// not be running against target.
func (s *Service) Restore(ctx context.Context, a *Artifact, target string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	sum, _, err := checksum(a.Path)
	if err != nil {
		return nil, err
	}
	if sum != a.Checksum {
		return nil, fmt.Errorf("%w: %s", ErrChecksumMismatch, a.Path)
	}

	output, err := integrityCheck(ctx, a.Path)
	res := &Result{Target: target, Output: output}
	if err != nil {
		return res, err
	}

	tmp := target + ".restore"
	if err := copyFile(a.Path, tmp); err != nil {
		os.Remove(tmp)
		return res, err
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return res, fmt.Errorf("replacing database: %w", err)
	}
	// The old database's sidecars belong to the replaced file and must go
	// before anything opens the restored one.
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(target + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return res, fmt.Errorf("removing stale %s file: %w", suffix, err)
		}
	}

	slog.Info("backup restored", "id", a.ID, "target", target)
	return res, nil
}

// integrityCheck runs PRAGMA integrity_check on a read-only connection and
// returns its output lines.
func integrityCheck(ctx context.Context, path string) ([]string, error) {
	conn, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("opening backup: %w", err)
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, `PRAGMA integrity_check`)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIntegrity, err)
	}
	defer rows.Close()

	var output []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return output, fmt.Errorf("reading integrity check: %w", err)
		}
		output = append(output, line)
	}
	if err := rows.Err(); err != nil {
		return output, fmt.Errorf("%w: %w", ErrIntegrity, err)
	}
	if len(output) != 1 || output[0] != "ok" {
		return output, fmt.Errorf("%w: %s", ErrIntegrity, strings.Join(output, "; "))
	}
	return output, nil
}

func checksum(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("opening backup: %w", err)
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("hashing backup: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

func writeManifest(a *Artifact) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(a.Path+manifestSuffix, data, 0o640); err != nil {
		return fmt.Errorf("writing backup manifest: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening backup: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("creating restore file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying backup: %w", err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return fmt.Errorf("syncing restore file: %w", err)
	}
	return out.Close()
}
