package objstore

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/adamryczkowski/cachemanager/internal/cacheerr"
	"github.com/adamryczkowski/cachemanager/internal/cachekey"
)

// LocalStore is a content-addressed Store backed by a local directory.
// A StorageKey is a path relative to root. Writes go to a temp file first
// and are linked into place, so a write that fails partway never leaves a
// blob readable at key, and "overwrite forbidden" (spec §6.2) is enforced
// by Link failing when the destination already exists — grounded on the
// teacher's AOF append handling and on scttfrdmn-objectfs's local-backend
// path conventions.
type LocalStore struct {
	root string
}

// NewLocalStore opens (creating if needed) a local-volume object store
// rooted at root.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, cacheerr.New(cacheerr.KindIOFailure, "NewLocalStore", err)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) path(key cachekey.StorageKey) string {
	return filepath.Join(s.root, filepath.FromSlash(string(key)))
}

func (s *LocalStore) Write(key cachekey.StorageKey, data []byte) (uint64, error) {
	dst := s.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, cacheerr.New(cacheerr.KindIOFailure, "LocalStore.Write", err)
	}

	tmp := dst + fmt.Sprintf(".tmp-%d", os.Getpid())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return 0, cacheerr.New(cacheerr.KindIOFailure, "LocalStore.Write", err)
	}

	// Link (not rename) so an existing blob at dst makes this fail
	// instead of silently overwriting it (spec §6.2: "overwrite forbidden").
	if err := os.Link(tmp, dst); err != nil {
		os.Remove(tmp)
		if os.IsExist(err) {
			return 0, cacheerr.New(cacheerr.KindIOFailure, "LocalStore.Write",
				fmt.Errorf("storage key already resident: %s", key))
		}
		return 0, cacheerr.New(cacheerr.KindIOFailure, "LocalStore.Write", err)
	}
	os.Remove(tmp)

	return uint64(len(data)), nil
}

func (s *LocalStore) Read(key cachekey.StorageKey) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, cacheerr.New(cacheerr.KindNotFound, "LocalStore.Read", err)
		}
		return nil, cacheerr.New(cacheerr.KindIOFailure, "LocalStore.Read", err)
	}
	return data, nil
}

func (s *LocalStore) Delete(key cachekey.StorageKey) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return cacheerr.New(cacheerr.KindIOFailure, "LocalStore.Delete", err)
	}
	return nil
}

func (s *LocalStore) Exists(key cachekey.StorageKey) (bool, error) {
	_, err := os.Stat(s.path(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, cacheerr.New(cacheerr.KindIOFailure, "LocalStore.Exists", err)
}

func (s *LocalStore) Size(key cachekey.StorageKey) (uint64, bool, error) {
	info, err := os.Stat(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, cacheerr.New(cacheerr.KindIOFailure, "LocalStore.Size", err)
	}
	return uint64(info.Size()), true, nil
}

func (s *LocalStore) IterKeys() ([]cachekey.StorageKey, error) {
	var keys []cachekey.StorageKey
	err := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		keys = append(keys, cachekey.StorageKey(filepath.ToSlash(rel)))
		return nil
	})
	if err != nil {
		return nil, cacheerr.New(cacheerr.KindIOFailure, "LocalStore.IterKeys", err)
	}
	return keys, nil
}

func (s *LocalStore) FreeSpace() (uint64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(s.root, &stat); err != nil {
		return 0, cacheerr.New(cacheerr.KindIOFailure, "LocalStore.FreeSpace", err)
	}
	return uint64(stat.Bavail) * uint64(stat.Bsize), nil
}
