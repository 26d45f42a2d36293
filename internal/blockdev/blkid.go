package blockdev

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pimigrate/tools/internal/sysexec"
)

// Identifiers are what blkid reports about a partition.
type Identifiers struct {
	Device   string
	PartUUID string // e.g. 4b1c3f2a-02 for MBR partitions
	UUID     string // filesystem UUID; ABCD-1234 style for FAT
	Type     string // filesystem type, e.g. ext4 or vfat
	Label    string
}

// ParseExport parses the output of blkid -o export for a single device.
func ParseExport(out string) Identifiers {
	var ids Identifiers
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		switch key {
		case "DEVNAME":
			ids.Device = value
		case "PARTUUID":
			ids.PartUUID = value
		case "UUID":
			ids.UUID = value
		case "TYPE":
			ids.Type = value
		case "LABEL":
			ids.Label = value
		}
	}
	return ids
}

// Validate checks that the identifiers needed to reference the partition
// from boot configuration are present. ext4 filesystem UUIDs must be
// RFC 4122 UUIDs.
func (ids Identifiers) Validate() error {
	if ids.PartUUID == "" {
		return fmt.Errorf("%s: blkid reported no PARTUUID", ids.Device)
	}
	if ids.UUID == "" {
		return fmt.Errorf("%s: blkid reported no filesystem UUID", ids.Device)
	}
	if strings.HasPrefix(ids.Type, "ext") {
		if _, err := uuid.Parse(ids.UUID); err != nil {
			return fmt.Errorf("%s: invalid filesystem UUID %q: %w", ids.Device, ids.UUID, err)
		}
	}
	return nil
}

// BlkidCommand is the command Query runs for dev.
func BlkidCommand(dev string) sysexec.Command {
	return sysexec.Cmd("blkid", "-o", "export", dev)
}

// Query runs blkid for dev and returns its validated identifiers.
func Query(ctx context.Context, runner sysexec.Runner, dev string) (Identifiers, error) {
	out, err := runner.Run(ctx, BlkidCommand(dev))
	if err != nil {
		return Identifiers{}, err
	}
	ids := ParseExport(out)
	if ids.Device == "" {
		ids.Device = dev
	}
	if err := ids.Validate(); err != nil {
		return Identifiers{}, err
	}
	return ids, nil
}
