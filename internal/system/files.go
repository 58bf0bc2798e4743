package system

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// File extensions recognized by FindLatestFile callers.
var (
	StoryExts = []string{".yaml", ".yml"}
	AudioExts = []string{".mp3", ".wav", ".m4a", ".ogg", ".aac", ".flac"}
	ImageExts = []string{".jpg", ".jpeg", ".png"}
)

// FindLatestFile returns the most recently modified file in dir whose
// extension is one of exts.
func FindLatestFile(dir string, exts []string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !hasExt(f.Name(), exts) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if latestFile == "" || info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("no %s files in %s", strings.Join(exts, "/"), dir)
	}
	return latestFile, nil
}

// ListFiles returns the files in dir with one of exts, sorted by name.
func ListFiles(dir string, exts []string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, f := range files {
		if !f.IsDir() && hasExt(f.Name(), exts) {
			out = append(out, filepath.Join(dir, f.Name()))
		}
	}
	return out, nil
}

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// OutputName derives a timestamped output path from an input file name,
// e.g. "My Story.yaml" -> output/My_Story_2006-01-02_15-04-05.mp4.
func OutputName(dir, input, ext string, now time.Time) string {
	base := filepath.Base(input)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = strings.ReplaceAll(name, " ", "_")
	return filepath.Join(dir, fmt.Sprintf("%s_%s%s", name, now.Format("2006-01-02_15-04-05"), ext))
}
