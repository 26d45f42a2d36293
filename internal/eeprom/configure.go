package eeprom

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/pimigrate/tools/internal/sysexec"
	"go.uber.org/zap"
)

// ConfigTool is the Raspberry Pi OS program that reads and applies the
// bootloader configuration of the running board.
const ConfigTool = "rpi-eeprom-config"

// ErrToolMissing is returned when ConfigTool is not installed.
var ErrToolMissing = errors.New(ConfigTool + " not found")

// Configurator changes the bootloader configuration of the running board.
type Configurator struct {
	Runner sysexec.Runner
	Log    *zap.Logger

	// LookPath defaults to exec.LookPath.
	LookPath func(string) (string, error)
	// TempDir is where the edited configuration is staged; empty means
	// os.TempDir().
	TempDir string
}

// Result describes what Configure did.
type Result struct {
	Before  string
	After   string
	Applied bool
}

// Configure reads the current configuration, applies settings and, if that
// changed anything, schedules the new configuration with
// "rpi-eeprom-config --apply". The update is flashed on the next reboot.
func (c *Configurator) Configure(ctx context.Context, settings []Setting) (*Result, error) {
	lookPath := c.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	tool, err := lookPath(ConfigTool)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrToolMissing, err)
	}

	before, err := c.Runner.Run(ctx, sysexec.Cmd(tool))
	if err != nil {
		return nil, fmt.Errorf("reading bootloader config: %w", err)
	}
	res := &Result{
		Before: before,
		After:  Apply(before, settings),
	}
	if res.After == res.Before {
		c.Log.Info("bootloader config already up to date")
		return res, nil
	}

	tmp, err := os.CreateTemp(c.TempDir, "pimigrate-bootconf-*.txt")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(res.After); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}
	c.Log.Debug("staged bootloader config", zap.String("path", tmp.Name()))

	if _, err := c.Runner.Run(ctx, sysexec.Cmd(tool, "--apply", tmp.Name())); err != nil {
		return nil, fmt.Errorf("applying bootloader config: %w", err)
	}
	res.Applied = true
	return res, nil
}

// ManualInstructions tells the operator how to make the change by hand.
func ManualInstructions(settings []Setting) string {
	s := "Run \"sudo " + ConfigTool + " --edit\" and set:\n"
	for _, setting := range settings {
		s += "  " + setting.String() + "\n"
	}
	return s
}
