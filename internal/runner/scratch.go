package runner

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ScratchPrefix is the fixed label on every per-execution scratch directory.
const ScratchPrefix = "pyrunner_output_"

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// ScratchManager creates and removes per-execution scratch directories.
// Names combine the fixed label, a millisecond timestamp and a short random
// suffix, which keeps concurrent executions on one host from colliding.
type ScratchManager struct {
	root string
}

// NewScratchManager uses root as the parent for scratch directories, or the
// OS temp directory when root is empty.
func NewScratchManager(root string) *ScratchManager {
	if root == "" {
		root = os.TempDir()
	}
	return &ScratchManager{root: root}
}

// Create makes a fresh scratch directory and returns its absolute path.
func (m *ScratchManager) Create() (string, error) {
	name := fmt.Sprintf("%s%d_%s", ScratchPrefix, time.Now().UnixMilli(), randomSuffix(6))
	path := filepath.Join(m.root, name)

	// MkdirAll tolerates the (vanishingly unlikely) pre-existing directory.
	if err := os.MkdirAll(path, 0o700); err != nil {
		return "", fmt.Errorf("%w: %v", ErrScratchUnavailable, err)
	}
	return path, nil
}

// Remove recursively deletes a scratch directory. A directory that is
// already gone is not an error; other failures are logged and swallowed so
// cleanup never masks the execution outcome.
func (m *ScratchManager) Remove(path string) {
	if path == "" {
		return
	}
	if err := os.RemoveAll(path); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("scratch directory cleanup failed")
	}
}

// SweepOrphans removes scratch directories older than maxAge that survived a
// crash mid-invocation. Returns the number of directories removed.
func (m *ScratchManager) SweepOrphans(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return 0, fmt.Errorf("listing scratch root: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	var removed int
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), ScratchPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(m.root, entry.Name())
		log.Info().Str("path", path).Msg("removing orphaned scratch directory")
		if err := os.RemoveAll(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to remove orphaned scratch directory")
			continue
		}
		removed++
	}

	if removed > 0 {
		log.Info().Int("count", removed).Msg("swept orphaned scratch directories")
	}
	return removed, nil
}

func randomSuffix(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// fall back to the timestamp already in the name.
		return strings.Repeat("0", n)
	}
	for i, b := range buf {
		buf[i] = suffixAlphabet[int(b)%len(suffixAlphabet)]
	}
	return string(buf)
}
