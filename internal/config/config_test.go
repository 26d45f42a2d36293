package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	fn := filepath.Join(t.TempDir(), "pimigrate.yaml")
	if err := os.WriteFile(fn, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return fn
}

func TestDefaultsValid(t *testing.T) {
	def := Defaults()
	if err := def.Validate(); err != nil {
		t.Fatal(err)
	}
	if got, want := def.BootMountpoint(), "/boot/firmware"; got != want {
		t.Errorf("BootMountpoint() = %q, want %q", got, want)
	}
}

func TestReadFromFile(t *testing.T) {
	fn := writeConfig(t, `
dest: /dev/sda
settle_timeout: 30s
eeprom: "no"
`)
	cfg, err := ReadFromFile(fn, true)
	if err != nil {
		t.Fatal(err)
	}
	want := Defaults()
	want.Dest = "/dev/sda"
	want.SettleTimeout = 30 * time.Second
	want.EEPROM = EEPROMNo
	if diff := cmp.Diff(&want, cfg); diff != "" {
		t.Errorf("ReadFromFile: unexpected diff (-want +got):\n%s", diff)
	}
}

func TestReadFromFileMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	cfg, err := ReadFromFile(missing, false)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Defaults(), *cfg); diff != "" {
		t.Errorf("unexpected diff (-want +got):\n%s", diff)
	}
	if _, err := ReadFromFile(missing, true); err == nil {
		t.Errorf("ReadFromFile(required): expected error for missing file")
	}
}

func TestReadFromFileUnknownKey(t *testing.T) {
	fn := writeConfig(t, "destination: /dev/sda\n")
	_, err := ReadFromFile(fn, true)
	if err == nil || !strings.Contains(err.Error(), "destination") {
		t.Errorf("ReadFromFile: err = %v, want error naming the unknown key", err)
	}
}

func TestReadFromFileEmpty(t *testing.T) {
	cfg, err := ReadFromFile(writeConfig(t, ""), true)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Defaults(), *cfg); diff != "" {
		t.Errorf("unexpected diff (-want +got):\n%s", diff)
	}
}

func TestFlagsOverrideFile(t *testing.T) {
	fn := writeConfig(t, "dest: /dev/sda\nboot_order: \"0xf41\"\n")
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags := RegisterPflags(fs)
	if err := fs.Parse([]string{"--config", fn, "--boot_order", "0xf146"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := flags.Load()
	if err != nil {
		t.Fatal(err)
	}
	// set in the file, not on the command line
	if got, want := cfg.Dest, "/dev/sda"; got != want {
		t.Errorf("Dest = %q, want %q", got, want)
	}
	// set in both
	if got, want := cfg.BootOrder, "0xf146"; got != want {
		t.Errorf("BootOrder = %q, want %q", got, want)
	}
	// set in neither
	if got, want := cfg.Source, "/dev/mmcblk0"; got != want {
		t.Errorf("Source = %q, want %q", got, want)
	}
}

func TestFlagsExplicitConfigMissing(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags := RegisterPflags(fs)
	if err := fs.Parse([]string{"--config", filepath.Join(t.TempDir(), "nope.yaml")}); err != nil {
		t.Fatal(err)
	}
	if _, err := flags.Load(); err == nil {
		t.Errorf("Load: expected error for a missing --config file")
	}
}

func TestValidate(t *testing.T) {
	for _, tt := range []struct {
		name   string
		modify func(*Struct)
		want   string
	}{
		{"relative-dest", func(s *Struct) { s.Dest = "nvme0n1" }, "dest must be an absolute path"},
		{"same-device", func(s *Struct) { s.Dest = s.Source }, "source and dest"},
		{"root-mount", func(s *Struct) { s.MountRoot = "/" }, "mount_root"},
		{"boot-label", func(s *Struct) { s.BootLabel = "BOOTFS-TOO-LONG" }, "boot_label"},
		{"boot-order", func(s *Struct) { s.BootOrder = "f416" }, "boot order"},
		{"timeout", func(s *Struct) { s.SettleTimeout = 0 }, "settle_timeout"},
		{"eeprom", func(s *Struct) { s.EEPROM = "maybe" }, "eeprom must be one of"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}
