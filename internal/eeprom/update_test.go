package eeprom

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestLatestImage(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"pieeprom-2024-09-23.bin",
		"pieeprom-2025-01-22.bin",
		"pieeprom-2023-12-06.bin",
		"recovery.bin",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := LatestImage(dir)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "pieeprom-2025-01-22.bin"); got != want {
		t.Errorf("LatestImage = %q, want %q", got, want)
	}
	if _, err := LatestImage(t.TempDir()); err == nil {
		t.Errorf("LatestImage(empty dir): expected error")
	}
}

func TestWriteUpdateFiles(t *testing.T) {
	img, err := PatchImage(syntheticImage(testBootconf), BootSettings("0xf416"))
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Join(t.TempDir(), "out")
	upd, sig, err := WriteUpdateFiles(dir, img)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := filepath.Base(upd), "pieeprom.upd"; got != want {
		t.Errorf("update file = %q, want %q", got, want)
	}

	written, err := os.ReadFile(upd)
	if err != nil {
		t.Fatal(err)
	}
	if len(written) != len(img) {
		t.Errorf("%s has %d bytes, want %d", upd, len(written), len(img))
	}

	sigContents, err := os.ReadFile(sig)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(sigContents), fmt.Sprintf("%x\n", sha256.Sum256(img)); got != want {
		t.Errorf("%s = %q, want %q", sig, got, want)
	}
}
