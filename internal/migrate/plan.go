package migrate

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pimigrate/tools/internal/blockdev"
	"github.com/pimigrate/tools/internal/config"
	"github.com/pimigrate/tools/internal/eeprom"
)

// PlanStep is what one state would do. Commands are external programs;
// Actions are done in-process.
type PlanStep struct {
	State    State
	Commands []string
	Actions  []string
}

// Plan returns the steps a migration with cfg would take, without touching
// the system.
func Plan(cfg *config.Struct) []PlanStep {
	p := pathsFor(cfg)
	settings := eeprom.BootSettings(cfg.BootOrder)
	var eepromAction string
	switch cfg.EEPROM {
	case config.EEPROMYes:
		eepromAction = "set " + settingsString(settings) + " via " + eeprom.ConfigTool + " --apply"
	case config.EEPROMNo:
		eepromAction = "print instructions to set " + settingsString(settings)
	default:
		eepromAction = "ask, then set " + settingsString(settings) + " via " + eeprom.ConfigTool + " --apply"
	}

	runtime := make([]string, 0, len(runtimeDirs))
	for _, d := range runtimeDirs {
		runtime = append(runtime, fmt.Sprintf("%s (%04o)", d.path, d.mode))
	}

	return []PlanStep{
		{
			State: Precheck,
			Actions: []string{
				"require effective uid 0",
				fmt.Sprintf("require block devices %s, %s, %s",
					cfg.Dest, blockdev.PartitionPath(cfg.Source, 1), blockdev.PartitionPath(cfg.Source, 2)),
				"require programs " + strings.Join(RequiredTools, ", "),
				fmt.Sprintf("require %s not mounted, not the root disk, larger than %d MiB", cfg.Dest, minDestSize>>20),
				"lock " + cfg.Dest + " (flock, exclusive)",
			},
		},
		{
			State:   Confirm,
			Actions: []string{"read YES from the operator"},
		},
		{
			State: Partition,
			Commands: []string{
				wipefsCommand(cfg.Dest).String(),
				partedCommand(cfg.Dest).String(),
				partprobeCommand(cfg.Dest).String(),
			},
			Actions: []string{
				fmt.Sprintf("zero the first %d MiB of %s (before parted)", zeroBytes>>20, cfg.Dest),
				"sync",
				fmt.Sprintf("wait up to %v for %s and %s", cfg.SettleTimeout, p.bootPart, p.rootPart),
				"verify partition table",
			},
		},
		{
			State: Format,
			Commands: []string{
				mkfsBootCommand(cfg, p).String(),
				mkfsRootCommand(cfg, p).String(),
			},
		},
		{
			State: Mount,
			Actions: []string{
				fmt.Sprintf("mount %s on %s (ext4)", p.rootPart, p.rootDir),
				fmt.Sprintf("mount %s on %s (vfat)", p.bootPart, p.bootDir),
			},
		},
		{
			State: Clone,
			Commands: []string{
				rsyncRootCommand(cfg, p).String(),
				rsyncBootCommand(cfg, p).String(),
			},
			Actions: []string{
				"recreate " + strings.Join(runtime, ", ") + " (between the two copies)",
			},
		},
		{
			State: Patch,
			Commands: []string{
				blockdev.BlkidCommand(p.bootPart).String(),
				blockdev.BlkidCommand(p.rootPart).String(),
			},
			Actions: []string{
				"set root=PARTUUID=<root PARTUUID> in " + filepath.Join(p.bootDir, "cmdline.txt") + " (backup: cmdline.txt.bak)",
				"regenerate " + filepath.Join(p.rootDir, "etc", "fstab") + " (backup: fstab.bak)",
			},
		},
		{
			State:   Finalize,
			Actions: []string{"sync", "print next steps", eepromAction},
		},
	}
}

func settingsString(settings []eeprom.Setting) string {
	strs := make([]string, len(settings))
	for i, s := range settings {
		strs[i] = s.String()
	}
	return strings.Join(strs, " ")
}

// PrintPlan writes steps in a human readable form.
func PrintPlan(w io.Writer, steps []PlanStep) {
	for i, step := range steps {
		fmt.Fprintf(w, "%d. %s\n", i+1, step.State)
		for _, a := range step.Actions {
			fmt.Fprintf(w, "     %s\n", a)
		}
		for _, c := range step.Commands {
			fmt.Fprintf(w, "   $ %s\n", c)
		}
	}
}
