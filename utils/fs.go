package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// maxTitleBytes keeps generated names well below common filesystem limits
const maxTitleBytes = 200

// maxExtensionBytes bounds extensions taken from configuration or post files
const maxExtensionBytes = 16

// illegalPathChars are rejected by at least one common filesystem
const illegalPathChars = `\/:*?"<>|`

// PathResolver produces collision-free file paths. Resolution is serialized per
// directory so concurrent workers never compute the same "next available" index.
type PathResolver struct {
	mutex sync.Mutex
	locks map[string]*sync.Mutex
}

// NewPathResolver creates a new PathResolver
func NewPathResolver() *PathResolver {
	return &PathResolver{
		locks: make(map[string]*sync.Mutex),
	}
}

// lockDir returns the unlock function for the directory's lock
func (r *PathResolver) lockDir(dir string) func() {
	key := filepath.Clean(dir)

	r.mutex.Lock()
	lock, ok := r.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[key] = lock
	}
	r.mutex.Unlock()

	lock.Lock()
	return lock.Unlock
}

// EnsureDir creates dir and all missing ancestors
func (r *PathResolver) EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// ResolveUniquePath returns the first of dir/title.ext, dir/title(1).ext, dir/title(2).ext...
// that does not exist. Nothing is created besides the directory, so calling it
// twice without writing the file returns the same path.
func (r *PathResolver) ResolveUniquePath(dir, title, ext string) (string, error) {
	if err := r.EnsureDir(dir); err != nil {
		return "", err
	}

	unlock := r.lockDir(dir)
	defer unlock()

	return probeUniquePath(dir, CleanPath(title), ext)
}

// Claim resolves a unique path and creates the file exclusively. A writer outside
// this process racing on the same name makes the create fail instead of overwriting.
func (r *PathResolver) Claim(dir, title, ext string) (*os.File, string, error) {
	if err := r.EnsureDir(dir); err != nil {
		return nil, "", err
	}

	unlock := r.lockDir(dir)
	defer unlock()

	path, err := probeUniquePath(dir, CleanPath(title), ext)
	if err != nil {
		return nil, "", err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	return file, path, nil
}

func probeUniquePath(dir, base, ext string) (string, error) {
	ext = CleanExtension(ext)
	dir = filepath.Clean(dir)

	for count := 0; ; count++ {
		name := base
		if count > 0 {
			name = fmt.Sprintf("%s(%d)", base, count)
		}
		if ext != "" {
			name += "." + ext
		}

		path := filepath.Join(dir, name)
		if filepath.Dir(path) != dir {
			return "", fmt.Errorf("name %q leaves directory %s", name, dir)
		}
		_, err := os.Lstat(path)
		if os.IsNotExist(err) {
			return path, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to probe %s: %w", path, err)
		}
	}
}

// CleanPath turns a title into a filesystem-safe name. The result is never empty.
func CleanPath(name string) string {
	var builder strings.Builder
	for _, r := range name {
		if r == utf8.RuneError || unicode.IsControl(r) || strings.ContainsRune(illegalPathChars, r) {
			continue
		}
		builder.WriteRune(r)
	}

	cleaned := strings.TrimSpace(builder.String())
	cleaned = strings.TrimRight(cleaned, ". ")
	cleaned = truncateUTF8(cleaned, maxTitleBytes)
	cleaned = strings.TrimRight(cleaned, ". ")

	if cleaned == "" {
		return "untitled"
	}
	return cleaned
}

// CleanExtension keeps the leading run of ASCII letters and digits of ext, after any
// leading dots. "txt/../x" becomes "txt"; the result may be empty.
func CleanExtension(ext string) string {
	ext = strings.TrimLeft(ext, ".")
	end := 0
	for end < len(ext) && end < maxExtensionBytes {
		c := ext[end]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			break
		}
		end++
	}
	return ext[:end]
}

func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// FileExists reports whether path exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// GetFileSize returns the size of a file
func GetFileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
