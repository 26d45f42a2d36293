package migrate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/pimigrate/tools/internal/blockdev"
	"github.com/pimigrate/tools/internal/bootcfg"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const fstabHeader = `/etc/fstab generated by pimigrate.
The previous table is kept in /etc/fstab.bak.`

func (r *run) patch(ctx context.Context) error {
	if err := r.queryIdentifiers(ctx); err != nil {
		return err
	}
	if err := r.patchCmdline(); err != nil {
		return err
	}
	return r.patchFstab()
}

// queryIdentifiers asks blkid about both new partitions concurrently.
func (r *run) queryIdentifiers(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		ids, err := blockdev.Query(ctx, r.Runner, r.paths.bootPart)
		r.bootIDs = ids
		return err
	})
	eg.Go(func() error {
		ids, err := blockdev.Query(ctx, r.Runner, r.paths.rootPart)
		r.rootIDs = ids
		return err
	})
	if err := eg.Wait(); err != nil {
		return err
	}
	r.log.Info("destination identifiers",
		zap.String("boot_partuuid", r.bootIDs.PartUUID),
		zap.String("boot_uuid", r.bootIDs.UUID),
		zap.String("root_partuuid", r.rootIDs.PartUUID),
		zap.String("root_uuid", r.rootIDs.UUID))
	return nil
}

// backup copies path to path+".bak" with the same permissions and returns
// the contents and permissions of path.
func backup(path string) ([]byte, fs.FileMode, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, 0, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	if err := renameio.WriteFile(path+".bak", b, st.Mode().Perm()); err != nil {
		return nil, 0, err
	}
	return b, st.Mode().Perm(), nil
}

func (r *run) patchCmdline() error {
	path := filepath.Join(r.paths.bootDir, "cmdline.txt")
	old, perm, err := backup(path)
	if errors.Is(err, fs.ErrNotExist) {
		r.log.Warn("no cmdline.txt on the boot partition, not changing the kernel root device",
			zap.String("path", path))
		return nil
	}
	if err != nil {
		return err
	}
	patched, found := bootcfg.RewriteRoot(string(old), r.rootIDs.PartUUID)
	if !found {
		r.log.Warn("cmdline.txt has no root= parameter, leaving it unchanged", zap.String("path", path))
		return nil
	}
	if err := renameio.WriteFile(path, []byte(patched), perm); err != nil {
		return err
	}
	oldRoot, _ := bootcfg.ParseCmdline(string(old)).Get("root")
	r.log.Info("patched kernel command line",
		zap.String("path", path),
		zap.String("old_root", oldRoot),
		zap.String("root", "PARTUUID="+r.rootIDs.PartUUID))
	return nil
}

func (r *run) patchFstab() error {
	path := filepath.Join(r.paths.rootDir, "etc", "fstab")
	var old []bootcfg.FstabEntry
	contents, _, err := backup(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		r.log.Warn("copied system has no /etc/fstab, creating one", zap.String("path", path))
	case err != nil:
		return err
	default:
		if old, err = bootcfg.ParseFstab(string(contents)); err != nil {
			r.log.Warn("cannot parse the old fstab, replacing it anyway", zap.Error(err))
		}
	}

	entries := bootcfg.MigratedFstab(r.rootIDs.PartUUID, r.bootIDs.PartUUID, r.Config.BootMountpoint())
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := renameio.WriteFile(path, []byte(bootcfg.FormatFstab(fstabHeader, entries)), 0644); err != nil {
		return fmt.Errorf("writing fstab: %w", err)
	}
	for _, e := range bootcfg.Dropped(old, entries) {
		r.log.Debug("dropped fstab entry",
			zap.String("spec", e.Spec),
			zap.String("file", e.File),
			zap.String("type", e.VFSType))
	}
	r.log.Info("wrote fstab", zap.String("path", path), zap.Int("entries", len(entries)))
	return nil
}
