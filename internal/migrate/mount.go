package migrate

import (
	"context"
	"os"

	"go.uber.org/zap"
)

func (r *run) mount(ctx context.Context) error {
	p := r.paths
	if err := os.MkdirAll(p.rootDir, 0755); err != nil {
		return err
	}
	// From here on, cleanup unmounts whatever did get mounted.
	r.mountStarted = true

	if err := r.System.Mount(p.rootPart, p.rootDir, "ext4"); err != nil {
		return err
	}
	r.log.Info("mounted", zap.String("device", p.rootPart), zap.String("target", p.rootDir))

	if err := os.MkdirAll(p.bootDir, 0755); err != nil {
		return err
	}
	if err := r.System.Mount(p.bootPart, p.bootDir, "vfat"); err != nil {
		return err
	}
	r.log.Info("mounted", zap.String("device", p.bootPart), zap.String("target", p.bootDir))
	return nil
}
