package blockdev

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pimigrate/tools/internal/sysexec/sysexectest"
)

const rootExport = `DEVNAME=/dev/nvme0n1p2
LABEL=rootfs
UUID=3b614a3f-4a65-4480-876a-8a998e01ac9b
BLOCK_SIZE=4096
TYPE=ext4
PARTUUID=4b1c3f2a-02
`

func TestParseExport(t *testing.T) {
	got := ParseExport(rootExport)
	want := Identifiers{
		Device:   "/dev/nvme0n1p2",
		PartUUID: "4b1c3f2a-02",
		UUID:     "3b614a3f-4a65-4480-876a-8a998e01ac9b",
		Type:     "ext4",
		Label:    "rootfs",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseExport: unexpected diff (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	for _, tt := range []struct {
		name    string
		ids     Identifiers
		wantErr bool
	}{
		{
			name: "ext4",
			ids:  Identifiers{Device: "p2", PartUUID: "4b1c3f2a-02", UUID: "3b614a3f-4a65-4480-876a-8a998e01ac9b", Type: "ext4"},
		},
		{
			name: "vfat",
			ids:  Identifiers{Device: "p1", PartUUID: "4b1c3f2a-01", UUID: "5DE4-665C", Type: "vfat"},
		},
		{
			name:    "missing-partuuid",
			ids:     Identifiers{Device: "p1", UUID: "5DE4-665C", Type: "vfat"},
			wantErr: true,
		},
		{
			name:    "missing-uuid",
			ids:     Identifiers{Device: "p1", PartUUID: "4b1c3f2a-01"},
			wantErr: true,
		},
		{
			name:    "bad-ext4-uuid",
			ids:     Identifiers{Device: "p2", PartUUID: "4b1c3f2a-02", UUID: "not-a-uuid", Type: "ext4"},
			wantErr: true,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.ids.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestQuery(t *testing.T) {
	runner := sysexectest.NewFakeRunner()
	runner.Set("blkid -o export /dev/nvme0n1p2", rootExport, nil)
	ids, err := Query(context.Background(), runner, "/dev/nvme0n1p2")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := ids.PartUUID, "4b1c3f2a-02"; got != want {
		t.Errorf("PartUUID = %q, want %q", got, want)
	}

	runner.Fail("blkid -o export /dev/nvme0n1p1")
	if _, err := Query(context.Background(), runner, "/dev/nvme0n1p1"); err == nil {
		t.Errorf("Query: expected error when blkid fails")
	}
}
