package blockdev

import (
	"fmt"

	"github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/partition/mbr"
)

const MiB = 1 << 20

// PartitionSpec describes one expected primary MBR partition. End is
// exclusive; an End of 0 means the partition extends to the end of the
// device and only its start is checked.
type PartitionSpec struct {
	Type  mbr.Type
	Start int64
	End   int64
}

// VerifyLayout reads the partition table of path and checks that it is an
// MBR (msdos) table whose non-empty primary partitions match want exactly.
func VerifyLayout(path string, want []PartitionSpec) error {
	d, err := diskfs.Open(path, diskfs.WithOpenMode(diskfs.ReadOnly))
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer d.File.Close()

	pt, err := d.GetPartitionTable()
	if err != nil {
		return fmt.Errorf("reading partition table of %s: %w", path, err)
	}
	table, ok := pt.(*mbr.Table)
	if !ok {
		return fmt.Errorf("%s: partition table is %s, want msdos", path, pt.Type())
	}
	sector := int64(table.LogicalSectorSize)
	if sector == 0 {
		sector = 512
	}

	var got []*mbr.Partition
	for _, p := range table.Partitions {
		if p != nil && p.Type != mbr.Empty {
			got = append(got, p)
		}
	}
	if len(got) != len(want) {
		return fmt.Errorf("%s: found %d partitions, want %d", path, len(got), len(want))
	}
	for i, w := range want {
		p := got[i]
		start := int64(p.Start) * sector
		end := start + int64(p.Size)*sector
		if p.Type != w.Type {
			return fmt.Errorf("%s: partition %d has type 0x%02x, want 0x%02x", path, i+1, byte(p.Type), byte(w.Type))
		}
		if start != w.Start {
			return fmt.Errorf("%s: partition %d starts at byte %d, want %d", path, i+1, start, w.Start)
		}
		if w.End != 0 && end != w.End {
			return fmt.Errorf("%s: partition %d ends at byte %d, want %d", path, i+1, end, w.End)
		}
	}
	return nil
}
