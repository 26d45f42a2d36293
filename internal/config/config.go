// Package config holds the settings of a migration. Values come from, in
// increasing priority: built-in defaults, the YAML config file and
// command-line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pimigrate/tools/internal/eeprom"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read if present when no --config flag is given.
const DefaultPath = "/etc/pimigrate.yaml"

// EEPROMMode controls whether the bootloader configuration is changed after
// a successful migration.
type EEPROMMode string

const (
	EEPROMAsk EEPROMMode = "ask"
	EEPROMYes EEPROMMode = "yes"
	EEPROMNo  EEPROMMode = "no"
)

type Struct struct {
	Source     string `yaml:"source"`      // -source
	Dest       string `yaml:"dest"`        // -dest
	SourceBoot string `yaml:"source_boot"` // -source_boot
	MountRoot  string `yaml:"mount_root"`  // -mount_root

	// BootMount is where the firmware partition is mounted, relative to
	// the root filesystem.
	BootMount string `yaml:"boot_mount"`

	BootLabel string `yaml:"boot_label"`
	RootLabel string `yaml:"root_label"`

	BootOrder     string        `yaml:"boot_order"`     // -boot_order
	SettleTimeout time.Duration `yaml:"settle_timeout"` // -settle_timeout
	EEPROM        EEPROMMode    `yaml:"eeprom"`         // -eeprom
}

// Defaults returns the settings for migrating Raspberry Pi OS from the
// SD card to the first NVMe drive.
func Defaults() Struct {
	return Struct{
		Source:        "/dev/mmcblk0",
		Dest:          "/dev/nvme0n1",
		SourceBoot:    "/boot/firmware",
		MountRoot:     "/mnt/pimigrate",
		BootMount:     "boot/firmware",
		BootLabel:     "bootfs",
		RootLabel:     "rootfs",
		BootOrder:     "0xf416",
		SettleTimeout: 10 * time.Second,
		EEPROM:        EEPROMAsk,
	}
}

// BootMountpoint is the absolute mount point of the firmware partition on
// the migrated system, e.g. /boot/firmware.
func (s *Struct) BootMountpoint() string {
	return "/" + filepath.Clean(s.BootMount)
}

// Decode overlays the YAML document read from r onto s. Unknown keys are an
// error so that typos do not silently fall back to defaults.
func (s *Struct) Decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ReadFromFile returns the defaults overlaid with the config file at path.
// A missing file is only an error if required is set.
func ReadFromFile(path string, required bool) (*Struct, error) {
	cfg := Defaults()
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return &cfg, nil
		}
		return nil, err
	}
	if err := cfg.Decode(bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate reports the first setting that cannot work.
func (s *Struct) Validate() error {
	for _, p := range []struct{ name, val string }{
		{"source", s.Source},
		{"dest", s.Dest},
		{"source_boot", s.SourceBoot},
		{"mount_root", s.MountRoot},
	} {
		if !filepath.IsAbs(p.val) {
			return fmt.Errorf("%s must be an absolute path, got %q", p.name, p.val)
		}
	}
	if filepath.Clean(s.Source) == filepath.Clean(s.Dest) {
		return fmt.Errorf("source and dest are both %s", s.Source)
	}
	if filepath.Clean(s.MountRoot) == "/" {
		return fmt.Errorf("mount_root must not be /")
	}
	if s.BootMount == "" || filepath.IsAbs(s.BootMount) {
		return fmt.Errorf("boot_mount must be a relative path, got %q", s.BootMount)
	}
	// mkfs.vfat accepts at most 11 characters, mkfs.ext4 at most 16.
	if n := len(s.BootLabel); n == 0 || n > 11 {
		return fmt.Errorf("boot_label %q must be 1-11 characters", s.BootLabel)
	}
	if n := len(s.RootLabel); n == 0 || n > 16 {
		return fmt.Errorf("root_label %q must be 1-16 characters", s.RootLabel)
	}
	if err := eeprom.ValidateBootOrder(s.BootOrder); err != nil {
		return err
	}
	if s.SettleTimeout <= 0 {
		return fmt.Errorf("settle_timeout must be positive, got %v", s.SettleTimeout)
	}
	switch s.EEPROM {
	case EEPROMAsk, EEPROMYes, EEPROMNo:
	default:
		return fmt.Errorf("eeprom must be one of ask, yes, no; got %q", s.EEPROM)
	}
	return nil
}
