package migrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pimigrate/tools/internal/blockdev"
	"github.com/pimigrate/tools/internal/sysexec"
	"go.uber.org/zap"
)

func (r *run) backoff() blockdev.Backoff {
	if r.Backoff != (blockdev.Backoff{}) {
		return r.Backoff
	}
	b := blockdev.DefaultBackoff
	if r.Config.SettleTimeout > 0 {
		b.Timeout = r.Config.SettleTimeout
	}
	return b
}

func (r *run) partition(ctx context.Context) error {
	dest := r.Config.Dest
	if _, err := r.Runner.Run(ctx, wipefsCommand(dest)); err != nil {
		return err
	}
	if err := r.dest.ZeroHead(zeroBytes); err != nil {
		return err
	}
	if _, err := r.Runner.Run(ctx, partedCommand(dest)); err != nil {
		return err
	}

	if _, err := r.Runner.Run(ctx, partprobeCommand(dest)); err != nil {
		r.log.Warn("partprobe failed, re-reading partition table directly", zap.Error(err))
		if rerr := r.dest.RereadPartitions(); rerr != nil {
			return errors.Join(err, rerr)
		}
	}
	r.System.Sync()

	start := time.Now()
	if err := blockdev.WaitForNodes(ctx, []string{r.paths.bootPart, r.paths.rootPart}, r.backoff()); err != nil {
		return err
	}
	r.log.Debug("partition nodes present",
		zap.String("boot", r.paths.bootPart),
		zap.String("root", r.paths.rootPart),
		zap.Duration("waited", time.Since(start)))

	if err := r.System.VerifyLayout(dest, Layout); err != nil {
		return fmt.Errorf("verifying partition table: %w", err)
	}
	r.log.Info("partitioned", zap.String("dest", dest))
	return nil
}

func (r *run) format(ctx context.Context) error {
	for _, cmd := range []sysexec.Command{
		mkfsBootCommand(r.Config, r.paths),
		mkfsRootCommand(r.Config, r.paths),
	} {
		if _, err := r.Runner.Run(ctx, cmd); err != nil {
			return err
		}
		r.log.Info("formatted", zap.String("partition", cmd.Args[len(cmd.Args)-1]))
	}
	return nil
}
