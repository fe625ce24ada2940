package llm

import (
	"encoding/base64"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// payloadCache is the single-slot base64 cache. The three per-image calls
// share one payload; a new source evicts the previous entry and removes
// any temp file written while encoding it.
type payloadCache struct {
	mu       sync.Mutex
	key      string
	payload  string
	tempPath string
}

// ForPath returns the base64 payload of the file at path, reusing the
// cached entry when the source matches.
func (c *payloadCache) ForPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	key := "path:" + abs

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.key == key {
		return c.payload, nil
	}

	raw, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("failed to read image for llm payload: %w", err)
	}
	c.replace(key, base64.StdEncoding.EncodeToString(raw), "")
	return c.payload, nil
}

// ForImage returns the base64 JPEG payload of an in-memory thumbnail,
// keyed by object identity.
func (c *payloadCache) ForImage(img *image.NRGBA) (string, error) {
	key := fmt.Sprintf("img:%p", img)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.key == key {
		return c.payload, nil
	}

	tmp := filepath.Join(os.TempDir(), "fotocat_llm_"+uuid.NewString()+".jpg")
	if err := imaging.Save(img, tmp, imaging.JPEGQuality(90)); err != nil {
		return "", fmt.Errorf("failed to encode llm payload: %w", err)
	}
	raw, err := os.ReadFile(tmp)
	if err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to read encoded llm payload: %w", err)
	}
	c.replace(key, base64.StdEncoding.EncodeToString(raw), tmp)
	return c.payload, nil
}

// replace swaps the slot and unlinks the evicted entry's temp file.
// Caller holds the lock.
func (c *payloadCache) replace(key, payload, tempPath string) {
	if c.tempPath != "" && c.tempPath != tempPath {
		os.Remove(c.tempPath)
	}
	c.key = key
	c.payload = payload
	c.tempPath = tempPath
}

// Close drops the slot and its temp file.
func (c *payloadCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replace("", "", "")
}
