package eeprom

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/renameio/v2"
)

// File names the bootloader looks for on the firmware partition when
// self-updating.
const (
	UpdateFile    = "pieeprom.upd"
	SignatureFile = "pieeprom.sig"
)

// PatchImage returns img with settings applied to its bootconf.txt.
func PatchImage(img []byte, settings []Setting) ([]byte, error) {
	im, err := Parse(img)
	if err != nil {
		return nil, err
	}
	if err := im.SetBootconf([]byte(Apply(string(im.Bootconf()), settings))); err != nil {
		return nil, err
	}
	return im.Bytes(), nil
}

// WriteUpdateFiles writes img as pieeprom.upd into dir, accompanied by
// pieeprom.sig holding the hex SHA256 of the image. It returns the paths
// written.
func WriteUpdateFiles(dir string, img []byte) (upd, sig string, _ error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", err
	}
	upd = filepath.Join(dir, UpdateFile)
	if err := renameio.WriteFile(upd, img, 0644); err != nil {
		return "", "", err
	}
	sig = filepath.Join(dir, SignatureFile)
	sum := sha256.Sum256(img)
	if err := renameio.WriteFile(sig, []byte(fmt.Sprintf("%x\n", sum)), 0644); err != nil {
		return "", "", err
	}
	return upd, sig, nil
}

// LatestImage returns the pieeprom-*.bin file in dir that sorts last. For
// the release directories of the rpi-eeprom package
// (/lib/firmware/raspberrypi/bootloader-2712/default/ etc.), whose file
// names contain the date in yyyy-mm-dd format, that is the most recent one.
func LatestImage(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "pieeprom-*.bin"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no pieeprom-*.bin files in %s", dir)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	return matches[0], nil
}

// ShortSum returns the first 10 hex digits of the SHA256 of b, for display.
func ShortSum(b []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(b))[:10]
}
