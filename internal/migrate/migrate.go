// Package migrate moves a running Raspberry Pi OS installation from its SD
// card to another block device (typically an NVMe drive): it partitions and
// formats the destination, copies the live system onto it and points the
// copy's boot configuration at the new partitions.
//
// A migration is a fixed sequence of States. Whatever happens after
// Precheck acquired the destination device (success, failure, operator
// abort, SIGINT), the same cleanup unmounts the destination filesystems and
// releases the device lock.
package migrate

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/pimigrate/tools/internal/blockdev"
	"github.com/pimigrate/tools/internal/config"
	"github.com/pimigrate/tools/internal/eeprom"
	"github.com/pimigrate/tools/internal/sysexec"
	"github.com/pimigrate/tools/internal/version"
	"go.uber.org/zap"
)

// BootloaderConfigurator changes the bootloader EEPROM settings of the
// running board. *eeprom.Configurator implements it.
type BootloaderConfigurator interface {
	Configure(ctx context.Context, settings []eeprom.Setting) (*eeprom.Result, error)
}

// Migrator runs migrations.
type Migrator struct {
	Config *config.Struct
	System System
	Runner sysexec.Runner
	Log    *zap.Logger

	// Stdin answers the confirmation prompts; Stdout receives everything
	// meant for the operator (banners, rsync progress, guidance).
	Stdin  io.Reader
	Stdout io.Writer

	Bootloader BootloaderConfigurator

	// Backoff for the partition node wait. Zero means DefaultBackoff with
	// Config.SettleTimeout as timeout.
	Backoff blockdev.Backoff
}

// run is the state of one migration.
type run struct {
	*Migrator
	log   *zap.Logger
	paths paths
	input *bufio.Reader

	// pending is an operator input read still in flight.
	pending chan lineResult

	dest         Device
	destSize     uint64
	mountStarted bool

	bootIDs blockdev.Identifiers
	rootIDs blockdev.Identifiers
}

// Run performs the migration. It returns nil on success, an error wrapping
// ErrAborted if the operator declined, and a *StepError otherwise.
func (m *Migrator) Run(ctx context.Context) (err error) {
	id := uuid.New()
	r := &run{
		Migrator: m,
		log:      m.Log.With(zap.String("run", id.String())),
		paths:    pathsFor(m.Config),
		input:    bufio.NewReader(m.Stdin),
	}
	r.log.Info("starting migration",
		zap.String("source", m.Config.Source),
		zap.String("dest", m.Config.Dest),
		zap.String("version", version.ReadBrief()))

	defer func() {
		if cerr := r.cleanup(); cerr != nil {
			if err == nil {
				err = &StepError{State: Done, Err: cerr}
			} else {
				r.log.Error("cleanup failed", zap.Error(cerr))
			}
		}
	}()

	steps := map[State]func(context.Context) error{
		Precheck:  r.precheck,
		Confirm:   r.confirm,
		Partition: r.partition,
		Format:    r.format,
		Mount:     r.mount,
		Clone:     r.clone,
		Patch:     r.patch,
		Finalize:  r.finalize,
	}
	for _, state := range States() {
		if err := ctx.Err(); err != nil {
			return &StepError{State: state, Err: err}
		}
		r.log.Debug("entering state", zap.Stringer("state", state))
		if err := steps[state](ctx); err != nil {
			r.log.Debug("state failed", zap.Stringer("state", state), zap.Error(err))
			return &StepError{State: state, Err: err}
		}
	}
	r.log.Info("migration complete")
	return nil
}

// cleanup unmounts the destination (boot first, it is nested in root) and
// releases the device. It is safe to call when nothing was acquired.
func (r *run) cleanup() error {
	var errs []error
	if r.mountStarted {
		for _, target := range []string{r.paths.bootDir, r.paths.rootDir} {
			unmounted, err := r.System.Unmount(target)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if unmounted {
				r.log.Info("unmounted", zap.String("target", target))
			}
		}
		if mounts, err := r.System.ReadMounts(); err != nil {
			r.log.Warn("cannot verify unmount", zap.Error(err))
		} else {
			for _, target := range []string{r.paths.bootDir, r.paths.rootDir} {
				if blockdev.IsMountpoint(mounts, target) {
					r.log.Warn("still mounted after cleanup", zap.String("target", target))
				}
			}
		}
	}
	if r.dest != nil {
		if err := r.dest.Close(); err != nil {
			errs = append(errs, fmt.Errorf("releasing %s: %w", r.dest.Path(), err))
		}
		r.dest = nil
	}
	return errors.Join(errs...)
}

type lineResult struct {
	line string
	err  error
}

// readLine reads one line of operator input. A final line without
// terminator counts; EOF on an empty line is an error. It returns ctx.Err()
// as soon as ctx is done; the read itself keeps going in the background
// and its result is handed to the next readLine call.
func (r *run) readLine(ctx context.Context) (string, error) {
	if r.pending == nil {
		ch := make(chan lineResult, 1)
		go func() {
			line, err := r.input.ReadString('\n')
			ch <- lineResult{line: line, err: err}
		}()
		r.pending = ch
	}
	var res lineResult
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res = <-r.pending:
		r.pending = nil
	}
	line, err := res.line, res.err
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			err = nil
		} else {
			return "", err
		}
	}
	line = strings.TrimSuffix(line, "\n")
	return strings.Trim(line, " \t"), nil
}

func (r *run) printf(format string, args ...any) {
	fmt.Fprintf(r.Stdout, format, args...)
}
