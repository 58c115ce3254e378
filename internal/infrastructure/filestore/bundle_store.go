package filestore

import (
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bibbank/churn-service/internal/domain/model"
	"github.com/bibbank/churn-service/internal/domain/service"
)

const (
	bundlePrefix     = "churn_model_"
	bundleExt        = ".gob"
	latestBundleName = bundlePrefix + "latest" + bundleExt
)

// BundleStore keeps gob-encoded artifact bundles in a directory: one
// immutable file per version plus a latest copy that serving reads.
type BundleStore struct {
	logger *slog.Logger
	dir    string
}

// NewBundleStore creates a BundleStore rooted at dir.
func NewBundleStore(dir string, logger *slog.Logger) *BundleStore {
	return &BundleStore{dir: dir, logger: logger}
}

// VersionPath returns the file holding a bundle version.
func (s *BundleStore) VersionPath(version string) string {
	return filepath.Join(s.dir, bundlePrefix+version+bundleExt)
}

// LatestPath returns the file serving loads.
func (s *BundleStore) LatestPath() string {
	return filepath.Join(s.dir, latestBundleName)
}

// SaveVersion encodes the bundle into its versioned file. Versions are
// immutable, so an existing file is an error.
func (s *BundleStore) SaveVersion(ctx context.Context, bundle *service.ArtifactBundle) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if bundle.Version == "" || strings.ContainsAny(bundle.Version, `/\`) || bundle.Version == "latest" {
		return fmt.Errorf("filestore: invalid bundle version %q", bundle.Version)
	}
	if err := bundle.Validate(); err != nil {
		return fmt.Errorf("filestore: %w", err)
	}

	path := s.VersionPath(bundle.Version)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("filestore: bundle version %s already exists", bundle.Version)
	}

	if err := writeAtomic(path, func(w io.Writer) error {
		return gob.NewEncoder(w).Encode(bundle)
	}); err != nil {
		return fmt.Errorf("filestore: save bundle: %w", err)
	}

	s.logger.InfoContext(ctx, "bundle version saved",
		slog.String("version", bundle.Version),
		slog.String("path", path),
	)
	return nil
}

// Promote atomically replaces the latest bundle with a saved version.
func (s *BundleStore) Promote(ctx context.Context, version string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := os.Open(s.VersionPath(version))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("filestore: promote %s: %w", version, model.ErrBundleNotFound)
		}
		return fmt.Errorf("filestore: promote %s: %w", version, err)
	}
	defer src.Close()

	if err := writeAtomic(s.LatestPath(), func(w io.Writer) error {
		_, err := io.Copy(w, src)
		return err
	}); err != nil {
		return fmt.Errorf("filestore: promote %s: %w", version, err)
	}

	s.logger.InfoContext(ctx, "bundle promoted to latest", slog.String("version", version))
	return nil
}

// LoadLatest decodes the latest bundle.
func (s *BundleStore) LoadLatest(ctx context.Context) (*service.ArtifactBundle, error) {
	return s.load(ctx, s.LatestPath())
}

// Load decodes a specific bundle version.
func (s *BundleStore) Load(ctx context.Context, version string) (*service.ArtifactBundle, error) {
	return s.load(ctx, s.VersionPath(version))
}

// Versions lists saved versions, oldest first.
func (s *BundleStore) Versions() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("filestore: list bundles: %w", err)
	}
	var versions []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == latestBundleName ||
			!strings.HasPrefix(name, bundlePrefix) || !strings.HasSuffix(name, bundleExt) {
			continue
		}
		versions = append(versions, strings.TrimSuffix(strings.TrimPrefix(name, bundlePrefix), bundleExt))
	}
	sort.Strings(versions)
	return versions, nil
}

func (s *BundleStore) load(ctx context.Context, path string) (*service.ArtifactBundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("filestore: %s: %w", path, model.ErrBundleNotFound)
		}
		return nil, fmt.Errorf("filestore: open bundle: %w", err)
	}
	defer f.Close()

	var bundle service.ArtifactBundle
	if err := gob.NewDecoder(f).Decode(&bundle); err != nil {
		return nil, fmt.Errorf("filestore: decode bundle %s: %w", path, err)
	}
	if err := bundle.Validate(); err != nil {
		return nil, fmt.Errorf("filestore: %w", err)
	}
	return &bundle, nil
}
