package migrate

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"

	"github.com/pimigrate/tools/internal/blockdev"
	"github.com/pimigrate/tools/internal/eeprom"
)

type fakeDevice struct {
	path      string
	size      uint64
	zeroed    int64
	rereads   int
	rereadErr error
	closed    bool
}

func (d *fakeDevice) Path() string          { return d.path }
func (d *fakeDevice) Size() (uint64, error) { return d.size, nil }
func (d *fakeDevice) ZeroHead(n int64) error {
	d.zeroed = n
	return nil
}
func (d *fakeDevice) RereadPartitions() error {
	d.rereads++
	return d.rereadErr
}
func (d *fakeDevice) Close() error {
	d.closed = true
	return nil
}

// fakeSystem pretends to be a Raspberry Pi running from its SD card with an
// empty NVMe drive attached.
type fakeSystem struct {
	mu sync.Mutex

	euid         int
	blockDevices map[string]bool
	missingTools map[string]bool
	mounts       []blockdev.Mount
	device       *fakeDevice
	openErr      error
	verifyErr    error
	mountErr     map[string]error

	mounted   []string // targets, in mount order
	unmounted []string // targets, in unmount order
	syncs     int
}

func newFakeSystem(source, dest string) *fakeSystem {
	return &fakeSystem{
		blockDevices: map[string]bool{
			dest:                              true,
			blockdev.PartitionPath(source, 1): true,
			blockdev.PartitionPath(source, 2): true,
		},
		missingTools: make(map[string]bool),
		mounts: []blockdev.Mount{
			{Device: "proc", Mountpoint: "/proc", FSType: "proc"},
			{Device: blockdev.PartitionPath(source, 2), Mountpoint: "/", FSType: "ext4"},
			{Device: blockdev.PartitionPath(source, 1), Mountpoint: "/boot/firmware", FSType: "vfat"},
		},
		device:   &fakeDevice{path: dest, size: 256 << 30},
		mountErr: make(map[string]error),
	}
}

func (s *fakeSystem) Geteuid() int                   { return s.euid }
func (s *fakeSystem) IsBlockDevice(path string) bool { return s.blockDevices[path] }

func (s *fakeSystem) LookPath(file string) (string, error) {
	if s.missingTools[file] {
		return "", &exec.Error{Name: file, Err: exec.ErrNotFound}
	}
	return "/usr/sbin/" + file, nil
}

func (s *fakeSystem) ReadMounts() ([]blockdev.Mount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mounts := append([]blockdev.Mount(nil), s.mounts...)
	for _, target := range s.mounted {
		mounts = append(mounts, blockdev.Mount{Device: "/dev/fake", Mountpoint: target})
	}
	return mounts, nil
}

func (s *fakeSystem) OpenLocked(path string) (Device, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	if path != s.device.path {
		return nil, fmt.Errorf("unexpected device %s", path)
	}
	return s.device, nil
}

func (s *fakeSystem) Mount(dev, target, fstype string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.mountErr[target]; err != nil {
		return err
	}
	s.mounted = append(s.mounted, target)
	return nil
}

func (s *fakeSystem) Unmount(target string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.mounted {
		if m == target {
			s.mounted = append(s.mounted[:i], s.mounted[i+1:]...)
			s.unmounted = append(s.unmounted, target)
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeSystem) Sync() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncs++
}

func (s *fakeSystem) VerifyLayout(path string, want []blockdev.PartitionSpec) error {
	return s.verifyErr
}

type fakeBootloader struct {
	settings []eeprom.Setting
	err      error
}

func (b *fakeBootloader) Configure(ctx context.Context, settings []eeprom.Setting) (*eeprom.Result, error) {
	b.settings = settings
	if b.err != nil {
		return nil, b.err
	}
	return &eeprom.Result{Applied: true}, nil
}

var errBoom = errors.New("boom")
