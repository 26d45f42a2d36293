package migrate

import (
	"path/filepath"

	"github.com/diskfs/go-diskfs/partition/mbr"
	"github.com/pimigrate/tools/internal/blockdev"
	"github.com/pimigrate/tools/internal/config"
	"github.com/pimigrate/tools/internal/sysexec"
)

// RequiredTools must all be on $PATH before anything is touched.
var RequiredTools = []string{
	"wipefs",
	"parted",
	"partprobe",
	"mkfs.vfat",
	"mkfs.ext4",
	"rsync",
	"blkid",
}

const (
	// zeroBytes at the start of the destination are overwritten so that
	// no stale boot code or filesystem superblock survives.
	zeroBytes = 16 * blockdev.MiB

	bootStart = 4 * blockdev.MiB
	bootEnd   = 516 * blockdev.MiB

	// minDestSize leaves room for at least 1 MiB of root filesystem.
	minDestSize = bootEnd + blockdev.MiB
)

// Layout is the partition table written to the destination device.
var Layout = []blockdev.PartitionSpec{
	{Type: mbr.Fat32LBA, Start: bootStart, End: bootEnd},
	{Type: mbr.Linux, Start: bootEnd},
}

// rsyncFlags preserve permissions, ACLs, xattrs, hard links, sparse files
// and numeric ownership.
var rsyncFlags = []string{"-aAXHS", "--numeric-ids", "--info=progress2"}

// runtimeDirs are excluded from the copy and recreated empty afterwards.
var runtimeDirs = []struct {
	path string
	mode uint32
}{
	{"proc", 0755},
	{"sys", 0755},
	{"dev", 0755},
	{"run", 0755},
	{"tmp", 01777},
	{"var/tmp", 01777},
	{"mnt", 0755},
}

// paths are the derived locations of one migration.
type paths struct {
	bootPart string // destination partition 1
	rootPart string // destination partition 2
	rootDir  string // where rootPart is mounted
	bootDir  string // where bootPart is mounted, below rootDir
}

func pathsFor(cfg *config.Struct) paths {
	root := filepath.Clean(cfg.MountRoot)
	return paths{
		bootPart: blockdev.PartitionPath(cfg.Dest, 1),
		rootPart: blockdev.PartitionPath(cfg.Dest, 2),
		rootDir:  root,
		bootDir:  filepath.Join(root, cfg.BootMount),
	}
}

func wipefsCommand(dest string) sysexec.Command {
	return sysexec.Cmd("wipefs", "-a", dest)
}

func partedCommand(dest string) sysexec.Command {
	return sysexec.Cmd("parted", "-s", dest,
		"mklabel", "msdos",
		"mkpart", "primary", "fat32", "4MiB", "516MiB",
		"set", "1", "lba", "on",
		"mkpart", "primary", "ext4", "516MiB", "100%")
}

func partprobeCommand(dest string) sysexec.Command {
	return sysexec.Cmd("partprobe", dest)
}

func mkfsBootCommand(cfg *config.Struct, p paths) sysexec.Command {
	return sysexec.Cmd("mkfs.vfat", "-F", "32", "-n", cfg.BootLabel, p.bootPart)
}

func mkfsRootCommand(cfg *config.Struct, p paths) sysexec.Command {
	return sysexec.Cmd("mkfs.ext4", "-F", "-L", cfg.RootLabel, p.rootPart)
}

// cloneExcludes are relative to the source root "/".
func cloneExcludes(cfg *config.Struct) []string {
	excludes := []string{
		filepath.Clean(cfg.SourceBoot),
		"/mnt",
	}
	if root := filepath.Clean(cfg.MountRoot); root != "/mnt" {
		excludes = append(excludes, root)
	}
	return append(excludes,
		"/proc",
		"/sys",
		"/dev",
		"/run",
		"/tmp",
		"/var/tmp",
		"/var/cache/apt/archives/*.deb",
		"/lost+found",
	)
}

func rsyncRootCommand(cfg *config.Struct, p paths) sysexec.Command {
	args := append([]string(nil), rsyncFlags...)
	for _, ex := range cloneExcludes(cfg) {
		args = append(args, "--exclude="+ex)
	}
	args = append(args, "/", p.rootDir+"/")
	return sysexec.Cmd("rsync", args...)
}

func rsyncBootCommand(cfg *config.Struct, p paths) sysexec.Command {
	args := append([]string(nil), rsyncFlags...)
	args = append(args, filepath.Clean(cfg.SourceBoot)+"/", p.bootDir+"/")
	return sysexec.Cmd("rsync", args...)
}
