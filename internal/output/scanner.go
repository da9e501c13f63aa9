// Package output discovers and packages files a script wrote into its
// scratch directory.
package output

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// BinaryKeyPrefix is prepended to file names to form attachment keys. A flat
// directory cannot hold two files of the same name, so keys are unique per
// execution by construction.
const BinaryKeyPrefix = "output_"

// FileRecord is one file collected from a scratch directory.
type FileRecord struct {
	Filename   string `json:"filename"`
	Extension  string `json:"extension"`
	Size       int64  `json:"size"`
	MimeType   string `json:"mimetype"`
	Base64Data string `json:"base64_data"`
	BinaryKey  string `json:"binary_key"`
}

// Collect lists the regular files directly inside dir (no recursion; a flat
// contract keeps attachment keys unambiguous), skips those larger than
// maxFileSize, and returns the survivors base64-encoded with inferred MIME
// types. A file that cannot be read is skipped and logged, never fatal.
// Record order follows the directory listing and is not guaranteed sorted.
func Collect(dir string, maxFileSize int64) ([]FileRecord, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing output directory: %w", err)
	}

	var records []FileRecord
	for _, entry := range entries {
		if entry.IsDir() || !entry.Type().IsRegular() {
			continue
		}

		name := entry.Name()
		info, err := entry.Info()
		if err != nil {
			log.Warn().Err(err).Str("file", name).Msg("skipping unreadable output file")
			continue
		}
		if maxFileSize > 0 && info.Size() > maxFileSize {
			log.Debug().
				Str("file", name).
				Int64("size", info.Size()).
				Int64("limit", maxFileSize).
				Msg("skipping oversized output file")
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, name)) // #nosec G304 -- dir is a pipeline-owned scratch directory
		if err != nil {
			log.Warn().Err(err).Str("file", name).Msg("skipping unreadable output file")
			continue
		}

		ext := fileExtension(name)
		records = append(records, FileRecord{
			Filename:   name,
			Extension:  ext,
			Size:       int64(len(content)),
			MimeType:   MimeTypeForExtension(ext),
			Base64Data: base64.StdEncoding.EncodeToString(content),
			BinaryKey:  BinaryKeyPrefix + name,
		})
	}

	return records, nil
}

// fileExtension returns the lowercase extension without the dot, or "" when
// the name has none.
func fileExtension(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
