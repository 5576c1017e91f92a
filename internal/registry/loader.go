// Package registry finds the GGUF model file the server is started with.
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"mirrorpond/internal/common/fsutil"
	"mirrorpond/pkg/types"
)

// ErrNoModel is returned when a path holds no usable .gguf file.
var ErrNoModel = errors.New("no .gguf model found")

// ErrAmbiguous is returned when a directory holds more than one .gguf file.
var ErrAmbiguous = errors.New("more than one .gguf model found")

var quantRe = regexp.MustCompile(`(?i)[._-](i?q\d+(?:_[a-z0-9]+)*|bf16|f16|f32)\.gguf$`)

// GGUFScanner lists *.gguf files in a directory.
type GGUFScanner struct{}

func NewGGUFScanner() GGUFScanner { return GGUFScanner{} }

// Scan returns the .gguf files directly under dir, sorted by name.
func (GGUFScanner) Scan(dir string) ([]types.ModelFile, error) {
	abs, err := fsutil.Abs(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.ModelFile
	for _, e := range entries {
		if e.IsDir() || !isGGUF(e.Name()) {
			continue
		}
		mf, err := describe(filepath.Join(abs, e.Name()))
		if err != nil {
			continue
		}
		models = append(models, mf)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return models, nil
}

// Resolve turns the --model argument into exactly one model file. path may
// name the file itself or a directory holding exactly one .gguf file.
func Resolve(path string) (types.ModelFile, error) {
	if strings.TrimSpace(path) == "" {
		return types.ModelFile{}, fmt.Errorf("%w: empty model path", ErrNoModel)
	}
	abs, err := fsutil.Abs(path)
	if err != nil {
		return types.ModelFile{}, err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return types.ModelFile{}, fmt.Errorf("%w at %s", ErrNoModel, abs)
		}
		return types.ModelFile{}, fmt.Errorf("stat model: %w", err)
	}
	if !fi.IsDir() {
		if !isGGUF(abs) || !fsutil.IsRegularFile(abs) {
			return types.ModelFile{}, fmt.Errorf("%w: %s is not a .gguf file", ErrNoModel, abs)
		}
		return describe(abs)
	}

	models, err := NewGGUFScanner().Scan(abs)
	if err != nil {
		return types.ModelFile{}, err
	}
	switch len(models) {
	case 0:
		return types.ModelFile{}, fmt.Errorf("%w in %s", ErrNoModel, abs)
	case 1:
		return models[0], nil
	default:
		names := make([]string, len(models))
		for i, m := range models {
			names[i] = m.Name
		}
		return types.ModelFile{}, fmt.Errorf("%w in %s (%s); pass the file itself", ErrAmbiguous, abs, strings.Join(names, ", "))
	}
}

func describe(path string) (types.ModelFile, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return types.ModelFile{}, fmt.Errorf("stat model: %w", err)
	}
	name := filepath.Base(path)
	mf := types.ModelFile{Name: name, Path: path, SizeBytes: fi.Size()}
	if m := quantRe.FindStringSubmatch(name); m != nil {
		mf.Quant = strings.ToUpper(m[1])
	}
	return mf, nil
}

func isGGUF(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".gguf")
}
