package migrate

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pimigrate/tools/internal/measure"
	"github.com/pimigrate/tools/internal/sysexec"
	"go.uber.org/zap"
)

func (r *run) clone(ctx context.Context) error {
	if err := r.copyTree(ctx, "copying root filesystem", rsyncRootCommand(r.Config, r.paths)); err != nil {
		return err
	}
	if err := r.recreateRuntimeDirs(); err != nil {
		return err
	}
	return r.copyTree(ctx, "copying boot firmware", rsyncBootCommand(r.Config, r.paths))
}

// copyTree runs an rsync pass, streaming its progress to the operator.
func (r *run) copyTree(ctx context.Context, status string, cmd sysexec.Command) error {
	cmd.Stdout = r.Stdout
	done := measure.Interactively(r.Stdout, status)
	if _, err := r.Runner.Run(ctx, cmd); err != nil {
		done(", failed")
		return err
	}
	done("")
	r.log.Info("copied", zap.String("to", cmd.Args[len(cmd.Args)-1]))
	return nil
}

// recreateRuntimeDirs creates the mount points excluded from the copy, so
// that the migrated system can mount its virtual filesystems on boot.
func (r *run) recreateRuntimeDirs() error {
	for _, dir := range runtimeDirs {
		path := filepath.Join(r.paths.rootDir, dir.path)
		if err := os.MkdirAll(path, 0755); err != nil {
			return err
		}
		mode := os.FileMode(dir.mode & 0777)
		if dir.mode&01000 != 0 {
			mode |= os.ModeSticky
		}
		// Chmod, as MkdirAll is subject to the umask and leaves existing
		// directories alone.
		if err := os.Chmod(path, mode); err != nil {
			return err
		}
	}
	return nil
}
