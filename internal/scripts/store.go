// Package scripts provides the directory-backed macro script store.
package scripts

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/veltalldev/hid-server/internal/protocol"
)

// ErrNotFound is returned when a named script does not exist.
var ErrNotFound = errors.New("script not found")

// imageExtensions are probed in order when resolving a script's screenshot.
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp"}

// maxImageSize caps how large a screenshot the image endpoint will serve.
const maxImageSize = 50 * 1024 * 1024

// Store manages the script directory and its sibling image directory.
type Store struct {
	dir       string
	imagesDir string
	maxBytes  int64
}

// NewStore creates a store rooted at dir, creating both directories if
// needed. maxUploadMB caps Save.
func NewStore(dir, imagesDir string, maxUploadMB int) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create scripts dir: %w", err)
	}
	if err := os.MkdirAll(imagesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create images dir: %w", err)
	}
	return &Store{
		dir:       dir,
		imagesDir: imagesDir,
		maxBytes:  int64(maxUploadMB) * 1024 * 1024,
	}, nil
}

// Dir returns the script directory path.
func (s *Store) Dir() string {
	return s.dir
}

// Sanitize reduces a filename to letters, digits and "._-", dropping any
// path components. Applied to every name crossing the API boundary.
func Sanitize(name string) string {
	name = filepath.Base(name)
	var b strings.Builder
	for _, c := range name {
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
			c == '.' || c == '_' || c == '-' {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// List returns all stored scripts, newest first.
func (s *Store) List() ([]protocol.ScriptEntry, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scripts dir: %w", err)
	}

	var scripts []protocol.ScriptEntry
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".ahk") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		scripts = append(scripts, protocol.ScriptEntry{
			Name:       entry.Name(),
			Size:       info.Size(),
			ModifiedAt: info.ModTime(),
			HasImage:   s.hasImage(entry.Name()),
		})
	}

	sort.Slice(scripts, func(i, j int) bool {
		return scripts[i].ModifiedAt.After(scripts[j].ModifiedAt)
	})
	return scripts, nil
}

// Read returns the content of a stored script.
func (s *Store) Read(name string) (string, error) {
	name = Sanitize(name)
	if name == "" {
		return "", ErrNotFound
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if os.IsNotExist(err) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read script: %w", err)
	}
	return string(data), nil
}

// Save stores an uploaded script and returns the name it was stored under.
// Only .ahk files within the size cap are accepted.
func (s *Store) Save(name string, content []byte) (string, error) {
	if name == "" {
		return "", errors.New("no file selected")
	}
	if !strings.HasSuffix(name, ".ahk") {
		return "", errors.New("invalid file type, only .ahk files allowed")
	}
	if int64(len(content)) > s.maxBytes {
		return "", fmt.Errorf("file too large, maximum size is %dMB", s.maxBytes/(1024*1024))
	}

	safe := Sanitize(name)
	if !strings.HasSuffix(safe, ".ahk") {
		safe += ".ahk"
	}

	if err := os.WriteFile(filepath.Join(s.dir, safe), content, 0644); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	log.Printf("Scripts: saved %s (%d bytes)", safe, len(content))
	return safe, nil
}

// Delete removes a script and any screenshot stored for it.
func (s *Store) Delete(name string) error {
	name = Sanitize(name)
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return ErrNotFound
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete script: %w", err)
	}

	base := strings.TrimSuffix(name, ".ahk")
	for _, ext := range imageExtensions {
		os.Remove(filepath.Join(s.imagesDir, base+ext))
	}
	log.Printf("Scripts: deleted %s", name)
	return nil
}

// ImagePath resolves the screenshot stored for a script, returning its
// path and media type.
func (s *Store) ImagePath(name string) (string, string, error) {
	base := strings.TrimSuffix(Sanitize(name), ".ahk")
	for _, ext := range imageExtensions {
		path := filepath.Join(s.imagesDir, base+ext)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		if info.Size() > maxImageSize {
			return "", "", fmt.Errorf("image file too large")
		}
		return path, MediaType(ext), nil
	}
	return "", "", fmt.Errorf("no image found for script %q", name)
}

func (s *Store) hasImage(name string) bool {
	base := strings.TrimSuffix(name, ".ahk")
	for _, ext := range imageExtensions {
		if info, err := os.Stat(filepath.Join(s.imagesDir, base+ext)); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}

// MediaType returns the Content-Type for an image extension.
func MediaType(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".bmp":
		return "image/bmp"
	default:
		return "image/jpeg"
	}
}

// Watch monitors the script directory and invokes onChange after every
// create, write, remove or rename. The returned function stops the watcher.
func (s *Store) Watch(onChange func()) (func() error, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
					log.Printf("Scripts: %s changed (%s)", filepath.Base(ev.Name), ev.Op)
					onChange()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("Scripts: watcher error: %v", err)
			}
		}
	}()

	log.Printf("Scripts: watching %s", s.dir)
	return watcher.Close, nil
}
