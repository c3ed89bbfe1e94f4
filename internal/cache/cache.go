// Package cache stores analysis results on disk keyed by the request that
// produced them. It is used by the CLI only; the engine never caches.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/xab-mack/smartaudit/internal/model"
)

// schema is mixed into every key so result layout changes invalidate old
// entries.
const schema = "v1"

// Dir returns ~/.smartaudit/cache, creating it if needed.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".smartaudit", "cache")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// Key hashes the operation and the full request. Any option change yields a
// new key.
func Key(operation string, req model.AnalysisRequest) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(schema))
	h.Write([]byte{0})
	h.Write([]byte(operation))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Load returns the cached result for key. Unreadable or corrupt entries are
// reported as misses.
func Load(dir, key string) (*model.AnalysisResult, bool) {
	b, err := os.ReadFile(filepath.Join(dir, key+".json"))
	if err != nil {
		return nil, false
	}
	var res model.AnalysisResult
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, false
	}
	return &res, true
}

// Store writes res under key. Partial results are not cached.
func Store(dir, key string, res *model.AnalysisResult) error {
	if res == nil || res.Partial {
		return nil
	}
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, key+".json"), b, 0o644)
}
