package bootcfg

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
)

// FstabEntry is one line of fstab(5).
type FstabEntry struct {
	Spec    string
	File    string
	VFSType string
	Options string
	Freq    int
	PassNo  int
}

// ParseFstab parses fstab(5) contents, skipping comments and blank lines.
// Missing freq and passno fields default to 0.
func ParseFstab(contents string) ([]FstabEntry, error) {
	var entries []FstabEntry
	scanner := bufio.NewScanner(strings.NewReader(contents))
	for lineno := 1; scanner.Scan(); lineno++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, fmt.Errorf("fstab line %d: expected at least 4 fields, got %d", lineno, len(fields))
		}
		e := FstabEntry{
			Spec:    fields[0],
			File:    fields[1],
			VFSType: fields[2],
			Options: fields[3],
		}
		var err error
		if len(fields) > 4 {
			if e.Freq, err = strconv.Atoi(fields[4]); err != nil {
				return nil, fmt.Errorf("fstab line %d: freq: %w", lineno, err)
			}
		}
		if len(fields) > 5 {
			if e.PassNo, err = strconv.Atoi(fields[5]); err != nil {
				return nil, fmt.Errorf("fstab line %d: passno: %w", lineno, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}

// FormatFstab renders entries as an aligned fstab(5) file.
func FormatFstab(header string, entries []FstabEntry) string {
	var b strings.Builder
	for _, line := range strings.Split(strings.TrimSpace(header), "\n") {
		if line != "" {
			fmt.Fprintf(&b, "# %s\n", line)
		}
	}
	tw := tabwriter.NewWriter(&b, 0, 8, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\n", e.Spec, e.File, e.VFSType, e.Options, e.Freq, e.PassNo)
	}
	tw.Flush()
	return b.String()
}

// MigratedFstab returns the filesystem table for a migrated system. It is
// written from scratch instead of edited: entries of the old table (swap
// on the old card, USB data disks, ...) can be harmful on the new device.
func MigratedFstab(rootPartUUID, bootPartUUID, bootMountpoint string) []FstabEntry {
	return []FstabEntry{
		{
			Spec:    "PARTUUID=" + rootPartUUID,
			File:    "/",
			VFSType: "ext4",
			Options: "defaults,noatime",
			PassNo:  1,
		},
		{
			Spec:    "PARTUUID=" + bootPartUUID,
			File:    bootMountpoint,
			VFSType: "vfat",
			Options: "defaults",
			PassNo:  2,
		},
		{
			Spec:    "tmpfs",
			File:    "/tmp",
			VFSType: "tmpfs",
			Options: "nosuid,nodev",
		},
	}
}

// Dropped returns the entries of old that have no counterpart (same mount
// point) in replacement.
func Dropped(old, replacement []FstabEntry) []FstabEntry {
	kept := make(map[string]bool, len(replacement))
	for _, e := range replacement {
		kept[e.File] = true
	}
	var dropped []FstabEntry
	for _, e := range old {
		if !kept[e.File] {
			dropped = append(dropped, e)
		}
	}
	return dropped
}
