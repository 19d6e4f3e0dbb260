package bundle

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"go.uber.org/zap"

	"github.com/hearthos/shell/internal/shared/types"
)

// ManifestExt is the extension of activity bundle manifests.
const ManifestExt = ".activity"

// Seeder loads installed bundle manifests from disk
type Seeder struct {
	registry   *Registry
	bundlesDir string
}

// NewSeeder creates a bundle seeder
func NewSeeder(registry *Registry, bundlesDir string) *Seeder {
	return &Seeder{
		registry:   registry,
		bundlesDir: bundlesDir,
	}
}

// Seed loads all *.activity manifests from the bundles directory.
// Individual malformed manifests are skipped, not fatal.
func (s *Seeder) Seed() error {
	logger := s.registry.logger

	if _, err := os.Stat(s.bundlesDir); os.IsNotExist(err) {
		logger.Warn("bundles directory not found", zap.String("dir", s.bundlesDir))
		return nil
	}

	var loaded, failed int
	err := filepath.Walk(s.bundlesDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ManifestExt) {
			return nil
		}

		if err := s.loadManifest(path); err != nil {
			logger.Warn("failed to load bundle manifest",
				zap.String("path", path), zap.Error(err))
			failed++
			return nil
		}
		loaded++
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("bundle seeding complete",
		zap.String("dir", s.bundlesDir),
		zap.Int("loaded", loaded),
		zap.Int("failed", failed))
	return nil
}

func (s *Seeder) loadManifest(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var b types.Bundle
	if err := yaml.Unmarshal(data, &b); err != nil {
		return err
	}
	return s.registry.Register(&b)
}
