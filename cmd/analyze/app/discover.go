package app

import (
	"cmp"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

// dataFileRe matches recording file names of the form <pipe>-<pos>.csv,
// with an optional repeat suffix for resampled conditions, for example
// 12-3.csv or 12-3_2.csv.
var (
	dataFileRe = regexp.MustCompile(`^\d+-\d+(_\d+)?\.csv$`)
	tagSuffix  = regexp.MustCompile(`(_\d+)?\.csv$`)
)

// dataFile is one discovered recording: the measurement tag shared by
// repeated samples of the same condition, and the file path.
type dataFile struct {
	Tag  string
	Path string
}

// pipePos splits the <pipe>-<pos> tag into its components.
func (f dataFile) pipePos() (pipe, pos string) {
	pipe, pos, _ = strings.Cut(f.Tag, "-")
	return pipe, pos
}

// discoverFiles recursively finds recording files under dir, keeping at
// most maxSamples files per measurement tag. Results are sorted by tag
// then path so repeat selection is deterministic.
func discoverFiles(dir string, maxSamples int) ([]dataFile, error) {
	stat, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("data directory '%s': %w", dir, err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("data directory '%s' is not a directory", dir)
	}

	var files []dataFile
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !dataFileRe.MatchString(d.Name()) {
			return nil
		}

		files = append(files, dataFile{
			Tag:  tagSuffix.ReplaceAllString(d.Name(), ""),
			Path: path,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking data directory '%s': %w", dir, err)
	}

	slices.SortFunc(files, func(a, b dataFile) int {
		if c := cmp.Compare(a.Tag, b.Tag); c != 0 {
			return c
		}
		return cmp.Compare(a.Path, b.Path)
	})

	kept := files[:0]
	count := make(map[string]int, len(files))
	for _, f := range files {
		if count[f.Tag]++; count[f.Tag] <= maxSamples {
			kept = append(kept, f)
		}
	}
	return kept, nil
}
