// Package dataset loads the question dataset and resolves per-question
// answer images from the filesystem.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mkraev/rubriceval/internal/model"
)

// answerExts are the recognized answer image extensions (lower case).
var answerExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
}

// Load reads the question dataset from a JSON file. A missing file or
// malformed JSON is an error; the caller treats it as fatal to the run.
func Load(path string) ([]model.QuestionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var questions []model.QuestionRecord
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return questions, nil
}

// AnswerImages lists the answer images in one question's directory, filtered
// by recognized extensions (case-insensitive) and sorted lexicographically
// for deterministic ordering. A missing directory is an error; an existing
// directory with no images returns an empty slice.
func AnswerImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if answerExts[strings.ToLower(filepath.Ext(e.Name()))] {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// IsImageQuestion reports whether question content names an image file by
// extension. Only .png, .jpg and .jpeg are recognized question image types.
func IsImageQuestion(question string) bool {
	switch strings.ToLower(filepath.Ext(question)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}
