// Package bootcfg edits the two files that tie a Raspberry Pi OS install to
// its storage device: the kernel command line (cmdline.txt on the firmware
// partition) and the filesystem table (/etc/fstab).
package bootcfg

import (
	"strings"
)

// Cmdline is a kernel command line split into its whitespace-separated
// parameters. Order is significant and preserved.
type Cmdline []string

// ParseCmdline splits a kernel command line. The Raspberry Pi firmware only
// reads the first line of cmdline.txt, so anything after it is ignored.
// Double quotes group a value containing spaces, as in the kernel's own
// parser.
func ParseCmdline(s string) Cmdline {
	line, _, _ := strings.Cut(s, "\n")
	var c Cmdline
	for _, sp := range paramSpans(line) {
		c = append(c, line[sp.start:sp.end])
	}
	return c
}

type span struct{ start, end int }

// paramSpans returns the byte ranges of the parameters in line.
func paramSpans(line string) []span {
	var spans []span
	start := -1
	quoted := false
	for i := 0; i < len(line); i++ {
		switch ch := line[i]; {
		case ch == '"':
			quoted = !quoted
			if start < 0 {
				start = i
			}
		case (ch == ' ' || ch == '\t' || ch == '\r') && !quoted:
			if start >= 0 {
				spans = append(spans, span{start, i})
				start = -1
			}
		default:
			if start < 0 {
				start = i
			}
		}
	}
	if start >= 0 {
		spans = append(spans, span{start, len(line)})
	}
	return spans
}

// Get returns the value of the first key=value parameter named key.
func (c Cmdline) Get(key string) (string, bool) {
	for _, param := range c {
		if k, v, ok := strings.Cut(param, "="); ok && k == key {
			return v, true
		}
	}
	return "", false
}

// RewriteRoot points the root= parameter of the cmdline.txt contents at the
// partition with the given PARTUUID, whatever form the old reference took
// (PARTUUID=, UUID=, LABEL= or a device path). It reports whether a root=
// parameter was present. Only the root= parameters change: spacing, other
// parameters and any further lines are kept byte for byte, so rewriting an
// already rewritten file is a no-op.
func RewriteRoot(contents, partuuid string) (string, bool) {
	line, rest, hasRest := strings.Cut(contents, "\n")
	replacement := "root=PARTUUID=" + partuuid
	var b strings.Builder
	found := false
	last := 0
	for _, sp := range paramSpans(line) {
		if k, _, ok := strings.Cut(line[sp.start:sp.end], "="); !ok || k != "root" {
			continue
		}
		found = true
		b.WriteString(line[last:sp.start])
		b.WriteString(replacement)
		last = sp.end
	}
	b.WriteString(line[last:])
	if hasRest {
		b.WriteString("\n")
		b.WriteString(rest)
	}
	return b.String(), found
}
