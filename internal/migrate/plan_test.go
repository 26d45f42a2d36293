package migrate

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pimigrate/tools/internal/config"
)

func TestPlan(t *testing.T) {
	cfg := config.Defaults()
	steps := Plan(&cfg)

	var states []State
	for _, s := range steps {
		states = append(states, s.State)
	}
	if diff := cmp.Diff(States(), states); diff != "" {
		t.Errorf("plan states: unexpected diff (-want +got):\n%s", diff)
	}

	partition := steps[Partition]
	want := []string{
		"wipefs -a /dev/nvme0n1",
		"parted -s /dev/nvme0n1 mklabel msdos mkpart primary fat32 4MiB 516MiB set 1 lba on mkpart primary ext4 516MiB 100%",
		"partprobe /dev/nvme0n1",
	}
	if diff := cmp.Diff(want, partition.Commands); diff != "" {
		t.Errorf("partition commands: unexpected diff (-want +got):\n%s", diff)
	}

	format := steps[Format]
	want = []string{
		"mkfs.vfat -F 32 -n bootfs /dev/nvme0n1p1",
		"mkfs.ext4 -F -L rootfs /dev/nvme0n1p2",
	}
	if diff := cmp.Diff(want, format.Commands); diff != "" {
		t.Errorf("format commands: unexpected diff (-want +got):\n%s", diff)
	}

	clone := steps[Clone]
	if got, want := clone.Commands[1], "rsync -aAXHS --numeric-ids --info=progress2 /boot/firmware/ /mnt/pimigrate/boot/firmware/"; got != want {
		t.Errorf("boot copy = %q, want %q", got, want)
	}
	if !strings.HasSuffix(clone.Commands[0], "--exclude=/lost+found / /mnt/pimigrate/") {
		t.Errorf("root copy = %q, want it to end in the root to root copy", clone.Commands[0])
	}
}

func TestPrintPlan(t *testing.T) {
	cfg := config.Defaults()
	cfg.EEPROM = config.EEPROMYes
	var buf bytes.Buffer
	PrintPlan(&buf, Plan(&cfg))
	out := buf.String()
	for _, want := range []string{
		"1. precheck\n",
		"8. finalize\n",
		"   $ blkid -o export /dev/nvme0n1p2\n",
		"set BOOT_ORDER=0xf416 PCIE_PROBE=1 via rpi-eeprom-config --apply",
		"tmp (1777)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("PrintPlan output does not contain %q:\n%s", want, out)
		}
	}
}

func TestStepError(t *testing.T) {
	err := error(&StepError{State: Confirm, Err: ErrAborted})
	if got, want := err.Error(), "confirm: aborted by operator"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrAborted) {
		t.Errorf("errors.Is(StepError, ErrAborted) = false")
	}
}

func TestStates(t *testing.T) {
	var names []string
	for _, s := range States() {
		names = append(names, s.String())
	}
	want := []string{"precheck", "confirm", "partition", "format", "mount", "clone", "patch", "finalize"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("States: unexpected diff (-want +got):\n%s", diff)
	}
	if Confirm.Destructive() || !Partition.Destructive() || Done.Destructive() {
		t.Errorf("Destructive() is wrong around the confirmation boundary")
	}
	if got, want := State(42).String(), "State(42)"; got != want {
		t.Errorf("State(42).String() = %q, want %q", got, want)
	}
}
