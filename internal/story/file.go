package story

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/storyvideo/internal/motion"
)

// Version written into new story files.
const Version = "1.0"

// Load reads a story file. Relative image and audio references are resolved
// against the file's directory.
func Load(path string) (*Story, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var s Story
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(s.Pages) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoPages)
	}

	s.Dir = filepath.Dir(path)
	return &s, nil
}

// Save writes a story file.
func Save(s *Story, path string) error {
	if s.Version == "" {
		s.Version = Version
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// resolve makes a file reference absolute-or-relative-to-cwd. Generated
// references such as "qr:..." are returned untouched.
func (s *Story) resolve(ref string) string {
	if ref == "" || s.Dir == "" || filepath.IsAbs(ref) || strings.Contains(ref, ":") {
		return ref
	}
	return filepath.Join(s.Dir, ref)
}

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

// Scaffold builds a story with one page per image found in dir. Pages get
// durationUs each and cycle through the motion presets. Image paths are
// written relative to relTo so the story can be saved there.
func Scaffold(dir, relTo string, durationUs int64) (*Story, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		files = append(files, e.Name())
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no images in %s: %w", dir, ErrNoPages)
	}
	sort.Strings(files)

	presets := motion.PresetNames()
	s := &Story{
		Version: Version,
		Title:   filepath.Base(dir),
	}
	for i, name := range files {
		ref := filepath.Join(dir, name)
		if relTo != "" {
			if rel, err := filepath.Rel(relTo, ref); err == nil {
				ref = rel
			}
		}
		// Skip "static" so every page moves.
		preset := presets[1+i%(len(presets)-1)]
		s.Pages = append(s.Pages, PageSpec{
			Image:      filepath.ToSlash(ref),
			DurationUs: durationUs,
			Motion:     &Motion{Preset: preset},
		})
	}
	return s, nil
}
