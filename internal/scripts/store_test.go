package scripts

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	root := t.TempDir()
	store, err := NewStore(filepath.Join(root, "scripts"), filepath.Join(root, "images"), 16)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

// TestSanitize tests filename reduction
func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"farm_v2.ahk", "farm_v2.ahk"},
		{"../../etc/passwd", "passwd"},
		{"my script!.ahk", "myscript.ahk"},
		{"name with spaces.ahk", "namewithspaces.ahk"},
		{"Ok-Name_1.2.ahk", "Ok-Name_1.2.ahk"},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestSaveAndList tests the upload path and listing order
func TestSaveAndList(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Save("first.ahk", []byte("Send, {a}\n")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Ensure a later modification time for ordering.
	time.Sleep(10 * time.Millisecond)
	if _, err := store.Save("second.ahk", []byte("Send, {b}\n")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	list, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("Expected 2 scripts, got %d", len(list))
	}
	if list[0].Name != "second.ahk" {
		t.Errorf("Expected newest first, got %s", list[0].Name)
	}
	if list[0].Size != int64(len("Send, {b}\n")) {
		t.Errorf("Expected size %d, got %d", len("Send, {b}\n"), list[0].Size)
	}
}

// TestSaveRejectsWrongType tests the .ahk-only policy
func TestSaveRejectsWrongType(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Save("malware.exe", []byte("x")); err == nil {
		t.Error("Expected error for non-.ahk upload")
	}
	if _, err := store.Save("", []byte("x")); err == nil {
		t.Error("Expected error for empty filename")
	}
}

// TestSaveRejectsOversize tests the upload size cap
func TestSaveRejectsOversize(t *testing.T) {
	root := t.TempDir()
	store, err := NewStore(filepath.Join(root, "scripts"), filepath.Join(root, "images"), 1)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	big := make([]byte, 2*1024*1024)
	_, err = store.Save("big.ahk", big)
	if err == nil {
		t.Fatal("Expected error for oversize upload")
	}
	if !strings.Contains(err.Error(), "1MB") {
		t.Errorf("Expected size limit in error message, got %v", err)
	}
}

// TestSaveSanitizesName tests that hostile names are stored safely
func TestSaveSanitizesName(t *testing.T) {
	store := newTestStore(t)

	stored, err := store.Save("../escape me.ahk", []byte("Sleep, 1\n"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if stored != "escapeme.ahk" {
		t.Errorf("Expected sanitized name escapeme.ahk, got %s", stored)
	}
	if _, err := os.Stat(filepath.Join(store.Dir(), stored)); err != nil {
		t.Errorf("Expected stored file inside scripts dir: %v", err)
	}
}

// TestReadMissing tests the not-found sentinel
func TestReadMissing(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Read("nope.ahk"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

// TestReadRoundTrip tests saved content comes back verbatim
func TestReadRoundTrip(t *testing.T) {
	store := newTestStore(t)

	content := "; demo\nLoop, 2\n{\nSend, {space}\n}\n"
	if _, err := store.Save("demo.ahk", []byte(content)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Read("demo.ahk")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got != content {
		t.Errorf("Expected content to round-trip, got %q", got)
	}
}

// TestDeleteRemovesImage tests that the screenshot goes with the script
func TestDeleteRemovesImage(t *testing.T) {
	root := t.TempDir()
	imagesDir := filepath.Join(root, "images")
	store, err := NewStore(filepath.Join(root, "scripts"), imagesDir, 16)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	if _, err := store.Save("farm.ahk", []byte("Sleep, 1\n")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	imgPath := filepath.Join(imagesDir, "farm.png")
	if err := os.WriteFile(imgPath, []byte("fakepng"), 0644); err != nil {
		t.Fatalf("write image: %v", err)
	}

	list, _ := store.List()
	if len(list) != 1 || !list[0].HasImage {
		t.Fatalf("Expected script with image, got %+v", list)
	}

	if err := store.Delete("farm.ahk"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(imgPath); !os.IsNotExist(err) {
		t.Error("Expected image removed with script")
	}
	if err := store.Delete("farm.ahk"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound on second delete, got %v", err)
	}
}

// TestImagePath tests screenshot resolution and media types
func TestImagePath(t *testing.T) {
	root := t.TempDir()
	imagesDir := filepath.Join(root, "images")
	store, err := NewStore(filepath.Join(root, "scripts"), imagesDir, 16)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	if err := os.WriteFile(filepath.Join(imagesDir, "farm.png"), []byte("png"), 0644); err != nil {
		t.Fatalf("write image: %v", err)
	}

	path, media, err := store.ImagePath("farm.ahk")
	if err != nil {
		t.Fatalf("ImagePath failed: %v", err)
	}
	if media != "image/png" {
		t.Errorf("Expected image/png, got %s", media)
	}
	if filepath.Base(path) != "farm.png" {
		t.Errorf("Expected farm.png, got %s", path)
	}

	if _, _, err := store.ImagePath("missing.ahk"); err == nil {
		t.Error("Expected error for missing image")
	}
}

// TestMediaType tests the extension mapping
func TestMediaType(t *testing.T) {
	if got := MediaType(".PNG"); got != "image/png" {
		t.Errorf("Expected image/png, got %s", got)
	}
	if got := MediaType(".jpg"); got != "image/jpeg" {
		t.Errorf("Expected image/jpeg, got %s", got)
	}
	if got := MediaType(".unknown"); got != "image/jpeg" {
		t.Errorf("Expected jpeg fallback, got %s", got)
	}
}

// TestWatch tests that directory changes invoke the callback
func TestWatch(t *testing.T) {
	store := newTestStore(t)

	var changes atomic.Int32
	stop, err := store.Watch(func() { changes.Add(1) })
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	defer stop()

	if _, err := store.Save("new.ahk", []byte("Sleep, 1\n")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for changes.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if changes.Load() == 0 {
		t.Error("Expected watcher callback after save")
	}
}
