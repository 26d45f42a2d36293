package eeprom

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/pimigrate/tools/internal/sysexec"
	"github.com/pimigrate/tools/internal/sysexec/sysexectest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const toolPath = "/usr/bin/rpi-eeprom-config"

func found(string) (string, error) { return toolPath, nil }

func TestConfigureApplies(t *testing.T) {
	runner := sysexectest.NewFakeRunner()
	runner.Set(toolPath, "[all]\nBOOT_UART=0\nBOOT_ORDER=0xf41\n", nil)
	tmpDir := t.TempDir()

	var staged string
	runner.OnRun = func(cmd sysexec.Command) error {
		if len(cmd.Args) == 2 && cmd.Args[0] == "--apply" {
			b, err := os.ReadFile(cmd.Args[1])
			if err != nil {
				return err
			}
			staged = string(b)
		}
		return nil
	}

	c := &Configurator{
		Runner:   runner,
		Log:      zaptest.NewLogger(t),
		LookPath: found,
		TempDir:  tmpDir,
	}
	res, err := c.Configure(context.Background(), BootSettings("0xf416"))
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, "[all]\nBOOT_UART=0\nBOOT_ORDER=0xf416\nPCIE_PROBE=1\n", staged)
	assert.Equal(t, staged, res.After)

	require.Len(t, runner.Commands, 2)
	assert.Equal(t, []string{toolPath}, runner.Commands[0])
	assert.Equal(t, "--apply", runner.Commands[1][1])

	leftovers, err := filepath.Glob(filepath.Join(tmpDir, "*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers, "staged config file not removed")
}

func TestConfigureAlreadyUpToDate(t *testing.T) {
	runner := sysexectest.NewFakeRunner()
	runner.Set(toolPath, "[all]\nBOOT_ORDER=0xf416\nPCIE_PROBE=1\n", nil)
	c := &Configurator{Runner: runner, Log: zaptest.NewLogger(t), LookPath: found}

	res, err := c.Configure(context.Background(), BootSettings("0xf416"))
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Len(t, runner.Commands, 1)
}

func TestConfigureToolMissing(t *testing.T) {
	runner := sysexectest.NewFakeRunner()
	c := &Configurator{
		Runner: runner,
		Log:    zaptest.NewLogger(t),
		LookPath: func(string) (string, error) {
			return "", exec.ErrNotFound
		},
	}
	_, err := c.Configure(context.Background(), BootSettings("0xf416"))
	assert.True(t, errors.Is(err, ErrToolMissing), "err = %v", err)
	assert.Empty(t, runner.Commands)
}

func TestConfigureApplyFails(t *testing.T) {
	runner := sysexectest.NewFakeRunner()
	runner.Set(toolPath, "BOOT_ORDER=0x1\n", nil)
	runner.OnRun = func(cmd sysexec.Command) error {
		if len(cmd.Args) > 0 && cmd.Args[0] == "--apply" {
			return &sysexec.ToolError{Argv: cmd.Argv(), ExitCode: 1, Err: errors.New("exit status 1")}
		}
		return nil
	}
	c := &Configurator{Runner: runner, Log: zaptest.NewLogger(t), LookPath: found, TempDir: t.TempDir()}

	_, err := c.Configure(context.Background(), BootSettings("0xf416"))
	var te *sysexec.ToolError
	require.True(t, errors.As(err, &te), "err = %v", err)
	assert.Equal(t, 1, te.ExitCode)
}
