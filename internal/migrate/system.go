package migrate

import (
	"os/exec"

	"github.com/pimigrate/tools/internal/blockdev"
)

// Device is the locked destination disk.
type Device interface {
	Path() string
	Size() (uint64, error)
	ZeroHead(n int64) error
	RereadPartitions() error
	Close() error
}

// System is the part of the host a migration touches directly, i.e. not
// through an external program.
type System interface {
	Geteuid() int
	IsBlockDevice(path string) bool
	LookPath(file string) (string, error)
	ReadMounts() ([]blockdev.Mount, error)
	OpenLocked(path string) (Device, error)
	Mount(dev, target, fstype string) error
	Unmount(target string) (bool, error)
	Sync()
	VerifyLayout(path string, want []blockdev.PartitionSpec) error
}

// HostSystem is the System of the machine we are running on.
type HostSystem struct{}

var _ System = HostSystem{}

func (HostSystem) Geteuid() int                           { return blockdev.Geteuid() }
func (HostSystem) IsBlockDevice(path string) bool         { return blockdev.IsBlockDevice(path) }
func (HostSystem) LookPath(file string) (string, error)   { return exec.LookPath(file) }
func (HostSystem) ReadMounts() ([]blockdev.Mount, error)  { return blockdev.ReadMounts() }
func (HostSystem) Mount(dev, target, fstype string) error { return blockdev.MountDevice(dev, target, fstype) }
func (HostSystem) Unmount(target string) (bool, error)    { return blockdev.Unmount(target) }
func (HostSystem) Sync()                                  { blockdev.Sync() }

func (HostSystem) OpenLocked(path string) (Device, error) {
	d, err := blockdev.OpenLocked(path)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (HostSystem) VerifyLayout(path string, want []blockdev.PartitionSpec) error {
	return blockdev.VerifyLayout(path, want)
}
