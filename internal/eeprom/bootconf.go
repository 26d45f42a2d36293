package eeprom

import (
	"fmt"
	"strings"
)

// Setting is one KEY=value line of bootconf.txt.
type Setting struct {
	Key   string
	Value string
}

func (s Setting) String() string { return s.Key + "=" + s.Value }

// BootSettings returns the settings that make the bootloader try NVMe
// storage according to bootOrder.
func BootSettings(bootOrder string) []Setting {
	return []Setting{
		{Key: "BOOT_ORDER", Value: bootOrder},
		{Key: "PCIE_PROBE", Value: "1"},
	}
}

// ValidateBootOrder checks that order is a BOOT_ORDER value as understood by
// the bootloader: 0x followed by 1 to 8 boot mode nibbles.
func ValidateBootOrder(order string) error {
	digits, ok := strings.CutPrefix(order, "0x")
	if !ok || len(digits) == 0 || len(digits) > 8 {
		return fmt.Errorf("invalid boot order %q: want 0x followed by 1-8 hex digits", order)
	}
	for _, r := range digits {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return fmt.Errorf("invalid boot order %q: %q is not a hex digit", order, r)
		}
	}
	return nil
}

// Apply sets each setting in bootconf: existing KEY= lines are replaced in
// place, keys not present are appended. Comments, section headers and
// unrelated lines are kept as they are.
func Apply(bootconf string, settings []Setting) string {
	lines := strings.Split(strings.TrimRight(bootconf, "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		lines = nil
	}
	byKey := make(map[string]Setting, len(settings))
	for _, s := range settings {
		byKey[s.Key] = s
	}

	seen := make(map[string]bool)
	lastFilter := ""
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") {
			lastFilter = trimmed
			continue
		}
		key, _, ok := strings.Cut(trimmed, "=")
		if !ok || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if s, ok := byKey[strings.TrimSpace(key)]; ok {
			lines[i] = s.String()
			seen[s.Key] = true
		}
	}

	var missing []string
	for _, s := range settings {
		if !seen[s.Key] {
			missing = append(missing, s.String())
		}
	}
	if len(missing) > 0 && lastFilter != "" && lastFilter != "[all]" {
		// Appended lines would otherwise only apply to the board model or
		// condition of the last section.
		lines = append(lines, "[all]")
	}
	lines = append(lines, missing...)
	return strings.Join(lines, "\n") + "\n"
}
