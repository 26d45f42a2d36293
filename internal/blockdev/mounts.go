package blockdev

import (
	"bufio"
	"os"
	"strconv"
	"strings"
)

// Mount is one line of /proc/self/mounts.
type Mount struct {
	Device     string
	Mountpoint string
	FSType     string
}

// ParseMounts parses the contents of /proc/self/mounts. Malformed lines
// are skipped.
func ParseMounts(contents string) []Mount {
	var mounts []Mount
	scanner := bufio.NewScanner(strings.NewReader(contents))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		mounts = append(mounts, Mount{
			Device:     unescapeMountField(fields[0]),
			Mountpoint: unescapeMountField(fields[1]),
			FSType:     fields[2],
		})
	}
	return mounts
}

// ReadMounts returns the mount table of the current mount namespace.
func ReadMounts() ([]Mount, error) {
	b, err := os.ReadFile("/proc/self/mounts")
	if err != nil {
		return nil, err
	}
	return ParseMounts(string(b)), nil
}

// RootDevice returns the device mounted at "/", or "" if none is listed.
// A later entry wins, as it shadows earlier ones.
func RootDevice(mounts []Mount) string {
	var dev string
	for _, m := range mounts {
		if m.Mountpoint == "/" {
			dev = m.Device
		}
	}
	return dev
}

// OnDisk returns the mounts whose device lives on disk. Pseudo filesystems
// (proc, tmpfs, ...) have no device path and never match.
func OnDisk(mounts []Mount, disk string) []Mount {
	var result []Mount
	for _, m := range mounts {
		if !strings.HasPrefix(m.Device, "/") {
			continue
		}
		if SameDisk(m.Device, disk) {
			result = append(result, m)
		}
	}
	return result
}

// IsMountpoint reports whether path is listed as a mount point.
func IsMountpoint(mounts []Mount, path string) bool {
	for _, m := range mounts {
		if m.Mountpoint == path {
			return true
		}
	}
	return false
}

// unescapeMountField decodes the octal escapes (\040 for space etc.) the
// kernel uses in /proc/self/mounts.
func unescapeMountField(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+4 <= len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+4], 8, 8); err == nil {
				b.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
