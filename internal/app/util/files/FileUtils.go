package files

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"smart-audio/internal/app/model"
)

const temporaryFileSuffix = ".tmp"

// ErrUnsafePath is returned when a requested path escapes its root
var ErrUnsafePath = fmt.Errorf("path escapes root directory")

func GetProjectRoot() (string, error) {
	_, filename, _, _ := runtime.Caller(0)
	return findGoModRoot(filename)
}

// Exists reports whether path exists and is a regular file or directory
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// EnsureDir creates dir and its parents if missing
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// WriteFileAtomic writes data to a sibling temp file and renames it over
// path, so readers never observe a partially written file.
func WriteFileAtomic(path string, data []byte) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	tmp := path + temporaryFileSuffix
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// WriteJSONAtomic encodes v with two-space indentation and writes it atomically
func WriteJSONAtomic(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	return WriteFileAtomic(path, append(data, '\n'))
}

// WriteJSONExclusive publishes v at path unless something is already there.
// It reports false, without error, when another writer got there first.
func WriteJSONExclusive(path string, v interface{}) (bool, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return false, fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return false, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*"+temporaryFileSuffix)
	if err != nil {
		return false, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return false, err
	}
	if err := tmp.Close(); err != nil {
		return false, err
	}

	// link fails if path exists, so exactly one writer publishes
	if err := os.Link(tmp.Name(), path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// SafeJoin joins an untrusted relative path onto root. It rejects absolute
// paths, parent traversal and symlinks that resolve outside root.
func SafeJoin(root, rel string) (string, error) {
	rel = filepath.FromSlash(strings.TrimPrefix(rel, "/"))
	if rel == "" || filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" {
		return "", ErrUnsafePath
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if part == ".." {
			return "", ErrUnsafePath
		}
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", err
	}

	joined := filepath.Join(realRoot, rel)
	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return "", err
	}
	if resolved != realRoot && !strings.HasPrefix(resolved, realRoot+string(filepath.Separator)) {
		return "", ErrUnsafePath
	}
	return resolved, nil
}

// GetAllFiles lists files in inputDir whose extension is in extensions,
// oldest first. Extensions are compared case-insensitively without the dot.
func GetAllFiles(inputDir string, extensions ...string) ([]model.FileInfo, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input directory: %w", err)
	}

	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}

	var fileInfos []model.FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		fi := model.FileInfo{FullPath: filepath.Join(inputDir, entry.Name()), Name: entry.Name()}
		if len(allowed) > 0 && !allowed[fi.Extension()] {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		fi.ModTime, fi.Size = info.ModTime(), info.Size()
		fileInfos = append(fileInfos, fi)
	}

	sort.Slice(fileInfos, func(i, j int) bool {
		return fileInfos[i].ModTime.Before(fileInfos[j].ModTime)
	})

	return fileInfos, nil
}

func findGoModRoot(path string) (string, error) {
	for {
		if _, err := os.Stat(filepath.Join(path, "go.mod")); err == nil {
			return path, nil
		}
		newPath := filepath.Dir(path)
		if newPath == path {
			return "", fmt.Errorf("go.mod not found")
		}
		path = newPath
	}
}
