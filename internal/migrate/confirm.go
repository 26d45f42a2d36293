package migrate

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

func (r *run) confirm(ctx context.Context) error {
	cfg := r.Config
	r.printf("\n")
	r.printf("WARNING: ALL DATA ON %s (%s) WILL BE DESTROYED.\n", cfg.Dest, humanize.IBytes(r.destSize))
	r.printf("\n")
	r.printf("The running system on %s will be copied to %s:\n", cfg.Source, cfg.Dest)
	r.printf("  %s  %s boot firmware (vfat, %q)\n", r.paths.bootPart, cfg.BootMountpoint(), cfg.BootLabel)
	r.printf("  %s  / (ext4, %q)\n", r.paths.rootPart, cfg.RootLabel)
	r.printf("\n")
	r.printf("Type YES to continue: ")

	answer, err := r.readLine(ctx)
	if err != nil {
		r.printf("\n")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: no answer (%v)", ErrAborted, err)
	}
	if answer != "YES" {
		return fmt.Errorf("%w: answer was %q, not YES", ErrAborted, answer)
	}
	r.log.Info("destructive migration confirmed", zap.String("dest", cfg.Dest))
	return nil
}
