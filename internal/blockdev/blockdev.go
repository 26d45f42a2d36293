// Package blockdev knows how Linux names disks and partitions, and wraps the
// handful of block device operations a migration performs in-process:
// exclusive locking, size queries, zeroing, partition table re-reads,
// waiting for partition nodes, mounting and reading identifiers.
package blockdev

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PartitionPath returns the device node of partition n on disk, following
// the kernel naming rules: disks whose name ends in a digit (mmcblk0,
// nvme0n1, loop0) get a "p" separator, others (sda) do not.
func PartitionPath(disk string, n int) string {
	disk = DevPath(disk)
	if last := disk[len(disk)-1]; last >= '0' && last <= '9' {
		return fmt.Sprintf("%sp%d", disk, n)
	}
	return fmt.Sprintf("%s%d", disk, n)
}

// DevPath turns a bare name like "sda" into "/dev/sda".
func DevPath(name string) string {
	if name == "" || strings.HasPrefix(name, "/") {
		return name
	}
	return filepath.Join("/dev", name)
}

// BaseDisk returns the whole-disk device a partition node belongs to:
// /dev/mmcblk0p2 → /dev/mmcblk0, /dev/sda1 → /dev/sda. Whole-disk paths
// are returned unchanged.
func BaseDisk(dev string) string {
	dev = DevPath(dev)
	name := filepath.Base(dev)
	for _, prefix := range []string{"mmcblk", "nvme", "loop"} {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		// Only a "p<digits>" suffix denotes a partition here; nvme0n1
		// ends in a digit but is a whole disk.
		idx := strings.LastIndexByte(name, 'p')
		if idx > len(prefix) && allDigits(name[idx+1:]) {
			return filepath.Join(filepath.Dir(dev), name[:idx])
		}
		return dev
	}
	trimmed := strings.TrimRight(name, "0123456789")
	if trimmed == "" {
		return dev
	}
	return filepath.Join(filepath.Dir(dev), trimmed)
}

// SameDisk reports whether a and b (disks or partitions) live on the same
// whole disk.
func SameDisk(a, b string) bool {
	return BaseDisk(a) == BaseDisk(b)
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
