//go:build !linux

package blockdev

import (
	"errors"
	"fmt"
	"os"
	"runtime"
)

var ErrBusy = errors.New("device is locked by another process")

type Disk struct{}

func unsupported() error {
	return fmt.Errorf("pimigrate is currently missing code for block device access on %s; it only runs on Linux", runtime.GOOS)
}

func OpenLocked(path string) (*Disk, error) { return nil, unsupported() }

func (d *Disk) Path() string                       { return "" }
func (d *Disk) Size() (uint64, error)              { return 0, unsupported() }
func (d *Disk) ZeroHead(n int64) error             { return unsupported() }
func (d *Disk) RereadPartitions() error            { return unsupported() }
func (d *Disk) Close() error                       { return nil }
func IsBlockDevice(path string) bool               { return false }
func MountDevice(dev, target, fstype string) error { return unsupported() }
func Unmount(target string) (bool, error)          { return false, unsupported() }
func Sync()                                        {}
func Geteuid() int                                 { return os.Geteuid() }
