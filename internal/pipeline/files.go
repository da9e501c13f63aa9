package pipeline

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"pyrunner/internal/script"
)

// BuildFileRefs turns binary attachments into input_files descriptors.
// When dir is non-empty the payloads are also decoded to files under it
// and each descriptor carries the resulting temp_path. Attachments on an
// item are processed in sorted key order so identical requests always
// compose an identical descriptor list.
func BuildFileRefs(items []InputItem, dir string) ([]script.FileRef, error) {
	var refs []script.FileRef

	for idx, item := range items {
		keys := make([]string, 0, len(item.Binary))
		for key := range item.Binary {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			att := item.Binary[key]
			data, err := base64.StdEncoding.DecodeString(att.Base64Data)
			if err != nil {
				return nil, fmt.Errorf("decoding attachment %q on item %d: %w", key, idx, err)
			}

			ref := script.FileRef{
				Filename:   att.Filename,
				MimeType:   att.MimeType,
				Size:       int64(len(data)),
				Extension:  attachmentExtension(att.Filename),
				BinaryKey:  key,
				ItemIndex:  idx,
				Base64Data: att.Base64Data,
			}

			if dir != "" {
				path := filepath.Join(dir, fmt.Sprintf("input_%d_%s", idx, sanitizeFilename(att.Filename)))
				if err := os.WriteFile(path, data, 0600); err != nil {
					return nil, fmt.Errorf("materializing attachment %q: %w", key, err)
				}
				ref.TempPath = path
				log.Debug().
					Str("path", path).
					Int64("size", ref.Size).
					Msg("attachment materialized")
			}

			refs = append(refs, ref)
		}
	}

	return refs, nil
}

func attachmentExtension(name string) string {
	ext := filepath.Ext(name)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// sanitizeFilename keeps attachment names from escaping the scratch
// directory or colliding on path separators.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "attachment"
	}
	return name
}
