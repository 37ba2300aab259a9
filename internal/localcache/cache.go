package localcache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"whiteboard-sync-server/internal/domain"
	"whiteboard-sync-server/internal/logger"
)

// Cache is the unversioned fallback store used when no identity is
// established: the whole document set is serialized to a single keyed blob
// and the last writer wins.
type Cache struct {
	dir string
}

func New(dir string) *Cache {
	return &Cache{dir: dir}
}

func (c *Cache) path(key string) string {
	// keys may contain arbitrary account names; hash them into a filename
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, fmt.Sprintf("%x.json", sum[:8]))
}

func (c *Cache) Save(key string, set domain.DocumentSet) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}

	data, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("failed to serialize document set: %w", err)
	}

	path := c.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache blob: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace cache blob: %w", err)
	}

	return nil
}

// Load restores the document set for key. A missing or corrupt blob recovers
// to the default document set; corruption is never surfaced as a failure.
func (c *Cache) Load(key string) domain.DocumentSet {
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return domain.DefaultDocumentSet("")
	}

	var set domain.DocumentSet
	if err := json.Unmarshal(data, &set); err != nil {
		logger.Error("local cache blob corrupt, resetting to defaults", err,
			map[string]interface{}{"key": key})
		return domain.DefaultDocumentSet("")
	}

	if len(set.Projects) == 0 {
		return domain.DefaultDocumentSet("")
	}

	return set
}
