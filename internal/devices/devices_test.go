package devices

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDeviceFromEnv(t *testing.T) {
	device, ok := deviceFromEnv("", map[string]string{"DEVNAME": "video0"})
	if !ok {
		t.Fatal("expected device for video0")
	}
	if device.Path != "/dev/video0" {
		t.Fatalf("unexpected path %q", device.Path)
	}

	device, ok = deviceFromEnv("", map[string]string{"DEVNAME": "/dev/video2"})
	if !ok || device.Path != "/dev/video2" {
		t.Fatalf("absolute device names must be kept, got %+v ok=%v", device, ok)
	}

	if _, ok := deviceFromEnv("", map[string]string{}); ok {
		t.Fatal("expected no device without DEVNAME")
	}
}

func TestReadCardName(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "name"), []byte("Integrated Camera\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := readCardName(dir); got != "Integrated Camera" {
		t.Fatalf("unexpected card name %q", got)
	}
	if got := readCardName(t.TempDir()); got != "" {
		t.Fatalf("expected empty name for missing file, got %q", got)
	}
	if got := readCardName(""); got != "" {
		t.Fatalf("expected empty name for empty kobj, got %q", got)
	}
}
