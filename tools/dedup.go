package tools

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/cespare/xxhash"
	"github.com/rs/zerolog/log"
)

// DuplicateResult summarizes a duplicate sweep.
type DuplicateResult struct {
	Total      int      `json:"total_files"`
	Unique     int      `json:"unique_files"`
	Duplicates int      `json:"duplicate_files"`
	BytesSaved int64    `json:"bytes_saved"`
	Removed    []string `json:"duplicates_list"`
}

// RemoveDuplicates hashes every file under folder and removes exact
// duplicates, keeping the first occurrence in path order. With dryRun set
// nothing is deleted; the result lists what would go.
func RemoveDuplicates(folder string, dryRun bool) (*DuplicateResult, error) {
	if _, err := os.Stat(folder); err != nil {
		return nil, fmt.Errorf("target folder does not exist: %w", err)
	}

	var files []string
	err := filepath.Walk(folder, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	// first-seen-wins needs a stable order
	sort.Strings(files)

	res := &DuplicateResult{Total: len(files)}
	seen := make(map[uint64]string)
	for _, path := range files {
		sum, size, err := hashFile(path)
		if err != nil {
			log.Error().Err(err).Str("file", filepath.Base(path)).Msg("hashing failed, skipping")
			continue
		}
		if _, dup := seen[sum]; !dup {
			seen[sum] = path
			res.Unique++
			continue
		}
		res.Duplicates++
		res.BytesSaved += size
		res.Removed = append(res.Removed, path)
		if !dryRun {
			if err := os.Remove(path); err != nil {
				log.Error().Err(err).Str("file", filepath.Base(path)).Msg("failed to remove duplicate")
			}
		}
	}

	log.Info().
		Int("unique", res.Unique).
		Int("duplicates", res.Duplicates).
		Int64("bytes_saved", res.BytesSaved).
		Bool("dry_run", dryRun).
		Msg("duplicate sweep complete")
	return res, nil
}

func hashFile(path string) (uint64, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	h := xxhash.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return 0, 0, err
	}
	return h.Sum64(), size, nil
}
