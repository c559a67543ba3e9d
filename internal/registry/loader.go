// Package registry discovers model assets on disk for the host side of the
// worker manager.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"workerd/internal/backend"
	"workerd/internal/common/fsutil"
	"workerd/pkg/types"
)

// DefaultExtensions maps supported file extensions to a format name.
var DefaultExtensions = map[string]string{
	".gguf":    "gguf",
	".onnx":    "onnx",
	".tflite":  "tflite",
	".mlmodel": "coreml",
	".sentis":  "sentis",
}

// typeKeywords classifies a file name; the first matching row wins.
var typeKeywords = []struct {
	t     backend.ModelType
	words []string
}{
	{backend.Segmentation, []string{"seg", "sam", "mask", "deeplab", "unet"}},
	{backend.Diffusion, []string{"diffusion", "sdxl", "sd15", "sd-", "inpaint"}},
	{backend.Depth, []string{"depth", "midas", "dpt", "zoe"}},
	{backend.Pose, []string{"pose", "keypoint", "openpose", "movenet"}},
	{backend.Detection, []string{"yolo", "detr", "ssd", "detect"}},
	{backend.Classification, []string{"resnet", "mobilenet", "efficientnet", "classif", "vit"}},
	{backend.Language, []string{"llama", "mistral", "qwen", "phi", "gemma", "gpt"}},
}

// Scanner builds model lists from directory contents.
type Scanner struct {
	exts map[string]string
}

// NewScanner returns a Scanner over DefaultExtensions. Extra extensions
// (".bin", "pt") are added with their bare name as format.
func NewScanner(extra ...string) *Scanner {
	exts := make(map[string]string, len(DefaultExtensions)+len(extra))
	for k, v := range DefaultExtensions {
		exts[k] = v
	}
	for _, e := range extra {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = strings.TrimPrefix(e, ".")
	}
	return &Scanner{exts: exts}
}

// Scan lists supported model files directly under dir, sorted by ID.
// ID is the full filename (including extension); Path is absolute.
func (s *Scanner) Scan(dir string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		format, ok := s.exts[strings.ToLower(filepath.Ext(name))]
		if !ok {
			continue
		}
		var size int64
		if fi, err := e.Info(); err == nil {
			size = fi.Size()
		}
		t := Classify(name)
		models = append(models, types.Model{
			ID:                   name,
			Name:                 strings.TrimSuffix(name, filepath.Ext(name)),
			Path:                 filepath.Join(abs, name),
			Format:               format,
			Type:                 string(t),
			SizeBytes:            size,
			RequiresAcceleration: t.RequiresAcceleration(),
		})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// LoadDir scans dir with the default extensions.
func LoadDir(dir string) ([]types.Model, error) {
	return NewScanner().Scan(dir)
}

// Classify guesses the model type from a file name.
func Classify(name string) backend.ModelType {
	n := strings.ToLower(filepath.Base(name))
	for _, row := range typeKeywords {
		for _, w := range row.words {
			if strings.Contains(n, w) {
				return row.t
			}
		}
	}
	if strings.HasSuffix(n, ".gguf") {
		return backend.Language
	}
	return backend.Generic
}

// Find returns the model with id from models.
func Find(models []types.Model, id string) (types.Model, bool) {
	for _, m := range models {
		if m.ID == id || m.Name == id {
			return m, true
		}
	}
	return types.Model{}, false
}
