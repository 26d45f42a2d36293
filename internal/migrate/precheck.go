package migrate

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pimigrate/tools/internal/blockdev"
	"go.uber.org/zap"
)

var (
	ErrNotRoot      = errors.New("must be run as root")
	ErrNoDevice     = errors.New("block device not found")
	ErrMissingTools = errors.New("required programs not found")
	ErrUnsafeDest   = errors.New("refusing to overwrite destination")
)

func (r *run) precheck(ctx context.Context) error {
	cfg := r.Config
	if euid := r.System.Geteuid(); euid != 0 {
		return fmt.Errorf("%w (effective uid %d)", ErrNotRoot, euid)
	}

	if !r.System.IsBlockDevice(cfg.Dest) {
		return fmt.Errorf("destination %s: %w", cfg.Dest, ErrNoDevice)
	}
	if disk := blockdev.BaseDisk(cfg.Dest); disk != cfg.Dest {
		return fmt.Errorf("%w: %s is a partition, pass the whole disk (%s)", ErrUnsafeDest, cfg.Dest, disk)
	}
	for _, part := range []string{
		blockdev.PartitionPath(cfg.Source, 1),
		blockdev.PartitionPath(cfg.Source, 2),
	} {
		if !r.System.IsBlockDevice(part) {
			return fmt.Errorf("source partition %s: %w", part, ErrNoDevice)
		}
	}

	var missing []string
	for _, tool := range RequiredTools {
		if _, err := r.System.LookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingTools, strings.Join(missing, ", "))
	}

	if blockdev.SameDisk(cfg.Source, cfg.Dest) {
		return fmt.Errorf("%w: %s and %s are the same disk", ErrUnsafeDest, cfg.Source, cfg.Dest)
	}
	mounts, err := r.System.ReadMounts()
	if err != nil {
		return err
	}
	rootDev := blockdev.RootDevice(mounts)
	if rootDev != "" && blockdev.SameDisk(rootDev, cfg.Dest) {
		return fmt.Errorf("%w: %s holds the running root filesystem (%s)", ErrUnsafeDest, cfg.Dest, rootDev)
	}
	if rootDev != "" && !blockdev.SameDisk(rootDev, cfg.Source) {
		r.log.Warn("running root filesystem is not on the source disk; the running system is copied regardless",
			zap.String("root", rootDev),
			zap.String("source", cfg.Source))
	}
	if busy := blockdev.OnDisk(mounts, cfg.Dest); len(busy) > 0 {
		var desc []string
		for _, m := range busy {
			desc = append(desc, m.Device+" on "+m.Mountpoint)
		}
		return fmt.Errorf("%w: mounted: %s", ErrUnsafeDest, strings.Join(desc, ", "))
	}
	if root := filepath.Clean(cfg.MountRoot); blockdev.IsMountpoint(mounts, root) {
		return fmt.Errorf("%s is already a mount point (left over from an earlier run?)", root)
	}

	dest, err := r.System.OpenLocked(cfg.Dest)
	if err != nil {
		return err
	}
	r.dest = dest
	size, err := dest.Size()
	if err != nil {
		return fmt.Errorf("reading size of %s: %w", cfg.Dest, err)
	}
	if size < minDestSize {
		return fmt.Errorf("%w: %s is only %s, need more than %s",
			ErrUnsafeDest, cfg.Dest, humanize.IBytes(size), humanize.IBytes(minDestSize))
	}
	r.destSize = size
	r.log.Info("precheck passed",
		zap.String("dest", cfg.Dest),
		zap.Uint64("dest_bytes", size))
	return nil
}
