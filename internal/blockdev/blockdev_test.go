package blockdev

import "testing"

func TestPartitionPath(t *testing.T) {
	for _, tt := range []struct {
		disk string
		n    int
		want string
	}{
		{"/dev/mmcblk0", 1, "/dev/mmcblk0p1"},
		{"/dev/mmcblk0", 2, "/dev/mmcblk0p2"},
		{"/dev/nvme0n1", 2, "/dev/nvme0n1p2"},
		{"/dev/sda", 1, "/dev/sda1"},
		{"sdb", 2, "/dev/sdb2"},
		{"/dev/loop7", 1, "/dev/loop7p1"},
	} {
		if got := PartitionPath(tt.disk, tt.n); got != tt.want {
			t.Errorf("PartitionPath(%q, %d) = %q, want %q", tt.disk, tt.n, got, tt.want)
		}
	}
}

func TestBaseDisk(t *testing.T) {
	for _, tt := range []struct {
		dev  string
		want string
	}{
		{"/dev/mmcblk0p2", "/dev/mmcblk0"},
		{"/dev/mmcblk0", "/dev/mmcblk0"},
		{"/dev/nvme0n1p1", "/dev/nvme0n1"},
		{"/dev/nvme0n1", "/dev/nvme0n1"},
		{"/dev/loop0p1", "/dev/loop0"},
		{"/dev/loop0", "/dev/loop0"},
		{"/dev/sda1", "/dev/sda"},
		{"/dev/sda", "/dev/sda"},
		{"sdc3", "/dev/sdc"},
	} {
		if got := BaseDisk(tt.dev); got != tt.want {
			t.Errorf("BaseDisk(%q) = %q, want %q", tt.dev, got, tt.want)
		}
	}
}

func TestSameDisk(t *testing.T) {
	for _, tt := range []struct {
		a, b string
		want bool
	}{
		{"/dev/sda", "/dev/sda", true},
		{"/dev/sda1", "/dev/sda", true},
		{"/dev/sda1", "/dev/sdb1", false},
		{"/dev/mmcblk0p1", "/dev/mmcblk0", true},
		{"/dev/mmcblk0p1", "/dev/mmcblk1p1", false},
		{"/dev/nvme0n1p2", "/dev/nvme0n1", true},
		{"/dev/nvme0n1p2", "/dev/mmcblk0", false},
	} {
		if got := SameDisk(tt.a, tt.b); got != tt.want {
			t.Errorf("SameDisk(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
