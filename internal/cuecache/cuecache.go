// Package cuecache provides localized filesystem-based caching for downloaded subtitle cue files.
package cuecache

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"time"

	"github.com/nuvio-play/nuvioplay/filesystem"
	"github.com/nuvio-play/nuvioplay/where"
)

const TTL = 7 * 24 * time.Hour

func getDir() string {
	return where.Cache()
}

// GenerateKey generates a deterministic SHA-256 hash from a cue file URL for use as a cache identifier.
func GenerateKey(url string) string {
	hash := sha256.Sum256([]byte(url))
	return hex.EncodeToString(hash[:]) + ".srt"
}

// Read attempts to retrieve a cached cue file if it exists and has not exceeded its TTL.
func Read(key string) ([]byte, bool) {
	path := filepath.Join(getDir(), key)

	info, err := filesystem.API().Stat(path)
	if err != nil || time.Since(info.ModTime()) > TTL {
		return nil, false
	}

	content, err := filesystem.API().ReadFile(path)
	if err != nil {
		return nil, false
	}
	return content, true
}

// Write persists a cue file to the cache using an atomic file swap to ensure data integrity.
func Write(key string, data []byte) error {
	path := filepath.Join(getDir(), key)
	tmpPath := path + ".tmp"

	if err := filesystem.API().WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}

	return filesystem.API().Rename(tmpPath, path)
}

// CollectGarbage initializes an asynchronous background task to prune expired cache entries from the filesystem.
func CollectGarbage() {
	go func() {
		dir := getDir()
		entries, err := filesystem.API().ReadDir(dir)
		if err != nil {
			return
		}

		for _, info := range entries {
			if info.IsDir() {
				continue
			}
			if time.Since(info.ModTime()) > TTL {
				_ = filesystem.API().Remove(filepath.Join(dir, info.Name()))
			}
		}
	}()
}
