package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/rs/zerolog/log"
)

// Organized filenames start with the message send time.
var organizedNameRegex = regexp.MustCompile(`^(\d{8}_\d{6})_`)

// FixResult summarizes a timestamp correction pass.
type FixResult struct {
	Total   int `json:"total_files"`
	Fixed   int `json:"fixed_files"`
	Skipped int `json:"skipped_files"`
	Failed  int `json:"failed_files"`
}

// FixTimestamps resets each organized file's modification time to the
// send time encoded in its filename, so photo viewers sort correctly.
func FixTimestamps(folder string) (*FixResult, error) {
	if _, err := os.Stat(folder); err != nil {
		return nil, fmt.Errorf("target folder does not exist: %w", err)
	}

	res := &FixResult{}
	err := filepath.Walk(folder, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		res.Total++

		m := organizedNameRegex.FindStringSubmatch(filepath.Base(path))
		if m == nil {
			res.Skipped++
			return nil
		}
		ts, err := time.Parse("20060102_150405", m[1])
		if err != nil {
			res.Skipped++
			return nil
		}
		if err := os.Chtimes(path, ts, ts); err != nil {
			log.Error().Err(err).Str("file", filepath.Base(path)).Msg("chtimes failed")
			res.Failed++
			return nil
		}
		res.Fixed++
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Int("fixed", res.Fixed).Int("skipped", res.Skipped).Msg("timestamp fix complete")
	return res, nil
}
