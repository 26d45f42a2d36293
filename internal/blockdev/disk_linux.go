package blockdev

import (
	"errors"
	"fmt"
	"io"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ErrBusy is returned by OpenLocked when another process holds the lock.
var ErrBusy = errors.New("device is locked by another process")

// Disk is a whole-disk block device opened for writing and held under an
// exclusive advisory lock. udev (and other well-behaved tools) do not probe
// a device while it is locked, so partition nodes do not flap while the
// table is rewritten.
type Disk struct {
	f    *os.File
	path string
}

// OpenLocked opens path read-write and takes a non-blocking exclusive
// flock(2) on it. The lock is released by Close.
func OpenLocked(path string) (*Disk, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%s: %w", path, ErrBusy)
		}
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	return &Disk{f: f, path: path}, nil
}

func (d *Disk) Path() string { return d.path }

// Size returns the device size in bytes.
func (d *Disk) Size() (uint64, error) {
	return deviceSize(d.f.Fd())
}

// ZeroHead overwrites the first n bytes of the device with zeros and
// flushes them to the device.
func (d *Disk) ZeroHead(n int64) error {
	const chunk = 1 << 20
	zeros := make([]byte, chunk)
	if _, err := d.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	for written := int64(0); written < n; {
		buf := zeros
		if rest := n - written; rest < chunk {
			buf = zeros[:rest]
		}
		w, err := d.f.Write(buf)
		if err != nil {
			return fmt.Errorf("zeroing %s at offset %d: %w", d.path, written, err)
		}
		written += int64(w)
	}
	return d.f.Sync()
}

// RereadPartitions makes Linux re-read the partition table. Sequence of
// system calls like in fdisk(8).
func (d *Disk) RereadPartitions() error {
	unix.Sync()
	if err := rereadPartitions(d.f.Fd()); err != nil {
		return fmt.Errorf("BLKRRPART on %s: %w", d.path, err)
	}
	if err := d.f.Sync(); err != nil {
		return err
	}
	unix.Sync()
	return nil
}

// Close releases the lock and closes the device.
func (d *Disk) Close() error {
	return d.f.Close()
}

func deviceSize(fd uintptr) (uint64, error) {
	var devsize uint64
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, unix.BLKGETSIZE64, uintptr(unsafe.Pointer(&devsize))); errno != 0 {
		return 0, errno
	}
	return devsize, nil
}

func rereadPartitions(fd uintptr) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, unix.BLKRRPART, 0); errno != 0 {
		return errno
	}
	return nil
}

// IsBlockDevice reports whether path exists and is a block device node.
func IsBlockDevice(path string) bool {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return false
	}
	return st.Mode&unix.S_IFMT == unix.S_IFBLK
}

// MountDevice mounts dev on target as fstype.
func MountDevice(dev, target, fstype string) error {
	if err := unix.Mount(dev, target, fstype, 0, ""); err != nil {
		return &os.PathError{Op: "mount " + dev, Path: target, Err: err}
	}
	return nil
}

// Unmount unmounts target. It reports whether something was unmounted;
// a target that is not mounted (or does not exist) is not an error. A busy
// target is detached lazily, the kernel finishes the unmount once the last
// file on it is closed.
func Unmount(target string) (bool, error) {
	err := unix.Unmount(target, 0)
	if errors.Is(err, unix.EBUSY) {
		err = unix.Unmount(target, unix.MNT_DETACH)
	}
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, unix.EINVAL), errors.Is(err, unix.ENOENT):
		return false, nil
	default:
		return false, &os.PathError{Op: "umount", Path: target, Err: err}
	}
}

// Sync flushes all filesystem buffers to stable storage.
func Sync() {
	unix.Sync()
}

// Geteuid returns the effective user id of the process.
func Geteuid() int {
	return unix.Geteuid()
}
