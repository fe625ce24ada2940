package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileMD5(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sample.bin")
	if err := os.WriteFile(path, []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}
	hash, err := FileMD5(path)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if hash != "5eb63bbbe01eeed093cb22bb8f5acdc3" {
		t.Errorf("hash = %q", hash)
	}
}

func TestFileMD5Missing(t *testing.T) {
	t.Parallel()

	if _, err := FileMD5(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("missing file must fail")
	}
}

func TestComputeCommonRootsTwoDrives(t *testing.T) {
	t.Parallel()

	groups := ComputeCommonRoots([]string{
		"/mnt/driveA/photos/2024/a.jpg",
		"/mnt/driveA/photos/2025/b.jpg",
		"/mnt/driveB/pics/c.nef",
	})
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if groups[0].Root != "/mnt/driveA/photos" || groups[0].Label != "driveA" {
		t.Errorf("group 0 = %+v", groups[0])
	}
	if len(groups[0].Paths) != 2 {
		t.Errorf("group 0 has %d paths", len(groups[0].Paths))
	}
	if groups[1].Root != "/mnt/driveB/pics" || groups[1].Label != "driveB" {
		t.Errorf("group 1 = %+v", groups[1])
	}
}

func TestComputeCommonRootsSingleVolume(t *testing.T) {
	t.Parallel()

	groups := ComputeCommonRoots([]string{
		"/home/gf/photos/birds/a.jpg",
		"/home/gf/photos/macro/b.jpg",
	})
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	if groups[0].Root != "/home/gf/photos" {
		t.Errorf("root = %q", groups[0].Root)
	}
}

func TestComputeDestPath(t *testing.T) {
	t.Parallel()

	got := ComputeDestPath("/mnt/driveA/photos/2024/a.jpg", "/mnt/driveA/photos", "driveA", "/out")
	want := filepath.Join("/out", "driveA", "2024", "a.jpg")
	if got != want {
		t.Errorf("dest = %q, want %q", got, want)
	}

	// distinct labels keep same-named files apart
	other := ComputeDestPath("/mnt/driveB/photos/2024/a.jpg", "/mnt/driveB/photos", "driveB", "/out")
	if got == other {
		t.Error("different drives must not collide")
	}
}

func TestComputeDestPathOutsideRoot(t *testing.T) {
	t.Parallel()

	got := ComputeDestPath("/elsewhere/x.jpg", "/mnt/driveA/photos", "driveA", "/out")
	if got != filepath.Join("/out", "driveA", "x.jpg") {
		t.Errorf("dest = %q", got)
	}
}

func TestDriveLabel(t *testing.T) {
	t.Parallel()

	if got := DriveLabel("/mnt/driveA/photos"); got != "photos" {
		t.Errorf("label = %q", got)
	}
	if got := DriveLabel("/"); got != "root" {
		t.Errorf("label for / = %q", got)
	}
}
