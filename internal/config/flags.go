package config

import (
	"github.com/spf13/pflag"
)

// Flags binds the config settings to command-line flags.
type Flags struct {
	fs         *pflag.FlagSet
	configPath string
	values     Struct
	eeprom     string
}

// RegisterPflags adds the config flags to fs. Their help text shows the
// built-in defaults; only flags set explicitly override the config file.
func RegisterPflags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	def := Defaults()
	fs.StringVar(&f.configPath,
		"config",
		"",
		"path to a YAML config file (default "+DefaultPath+" if it exists)")
	fs.StringVar(&f.values.Source,
		"source",
		def.Source,
		"block device of the running system (SD card)")
	fs.StringVar(&f.values.Dest,
		"dest",
		def.Dest,
		"block device to migrate to; ALL DATA ON IT IS DESTROYED")
	fs.StringVar(&f.values.SourceBoot,
		"source_boot",
		def.SourceBoot,
		"directory where the running system mounts its firmware partition")
	fs.StringVar(&f.values.MountRoot,
		"mount_root",
		def.MountRoot,
		"directory to mount the destination filesystems on during the migration")
	fs.StringVar(&f.values.BootOrder,
		"boot_order",
		def.BootOrder,
		"bootloader BOOT_ORDER to configure (0xf416: NVMe, SD card, USB, restart)")
	fs.DurationVar(&f.values.SettleTimeout,
		"settle_timeout",
		def.SettleTimeout,
		"how long to wait for the kernel to create the new partition device nodes")
	fs.StringVar(&f.eeprom,
		"eeprom",
		string(def.EEPROM),
		"configure the bootloader boot order after migrating: ask, yes or no")
	return f
}

// Load reads the config file (the --config path, or DefaultPath if it
// exists) and applies the flags that were set on the command line.
func (f *Flags) Load() (*Struct, error) {
	path, required := f.configPath, true
	if path == "" {
		path, required = DefaultPath, false
	}
	cfg, err := ReadFromFile(path, required)
	if err != nil {
		return nil, err
	}
	f.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (f *Flags) apply(cfg *Struct) {
	set := map[string]func(){
		"source":         func() { cfg.Source = f.values.Source },
		"dest":           func() { cfg.Dest = f.values.Dest },
		"source_boot":    func() { cfg.SourceBoot = f.values.SourceBoot },
		"mount_root":     func() { cfg.MountRoot = f.values.MountRoot },
		"boot_order":     func() { cfg.BootOrder = f.values.BootOrder },
		"settle_timeout": func() { cfg.SettleTimeout = f.values.SettleTimeout },
		"eeprom":         func() { cfg.EEPROM = EEPROMMode(f.eeprom) },
	}
	f.fs.Visit(func(fl *pflag.Flag) {
		if fn, ok := set[fl.Name]; ok {
			fn()
		}
	})
}

// ConfigPath returns the --config flag value.
func (f *Flags) ConfigPath() string { return f.configPath }
