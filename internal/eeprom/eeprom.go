// Package eeprom reads and edits Raspberry Pi 4/5 bootloader EEPROM images
// (pieeprom-*.bin) and their bootconf.txt configuration.
package eeprom

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Other implementations:
//
// - https://github.com/raspberrypi/rpi-eeprom (Python, rpi-eeprom-config)
// - https://github.com/info-beamer/rpi-eeprom-tools (Python)

const (
	sectionMagic     = 0x55aaf00f
	sectionMagicMask = 0xfffff00f
	fileMagic        = 0x55aaf11f // modifiable file section
	filenameLen      = 12
	filenamePadding  = 4

	headerLen    = 4 + 4 // magic + big endian length
	fileSkip     = filenameLen + filenamePadding
	bootconfName = "bootconf.txt"
)

// ErrInvalidImage is wrapped by all errors about malformed images.
var ErrInvalidImage = errors.New("invalid EEPROM image")

// Section is one magic/length delimited chunk of an image. For file
// sections, Data excludes the padded file name.
type Section struct {
	Magic    uint32
	Offset   int
	Filename string
	Data     []byte
}

func (s Section) isFile() bool { return s.Magic == fileMagic }

// encodedLen is the value of the length header for s.
func (s Section) encodedLen() int {
	if s.isFile() {
		return fileSkip + len(s.Data)
	}
	return len(s.Data)
}

// Image is a parsed EEPROM image.
type Image struct {
	size     int
	Sections []Section
}

// Parse splits img into its sections. By convention of the Raspberry Pi
// tooling, bootconf.txt must be the last section.
func Parse(img []byte) (*Image, error) {
	if len(img) != 512*1024 && len(img) != 2*1024*1024 {
		return nil, fmt.Errorf("%w: size %d, want 512KB or 2MB", ErrInvalidImage, len(img))
	}
	im := &Image{size: len(img)}
	for offset := 0; offset+headerLen < len(img); {
		magic := binary.BigEndian.Uint32(img[offset:])
		length := int(binary.BigEndian.Uint32(img[offset+4:]))
		if magic == 0 || magic == 0xffffffff {
			break // erased flash
		}
		if magic&sectionMagicMask != sectionMagic {
			return nil, fmt.Errorf("%w: bad magic %#x at offset %d", ErrInvalidImage, magic, offset)
		}
		start := offset + headerLen
		if length < 0 || start+length > len(img) {
			return nil, fmt.Errorf("%w: section at offset %d overruns the image", ErrInvalidImage, offset)
		}
		sect := Section{
			Magic:  magic,
			Offset: offset,
			Data:   img[start : start+length],
		}
		if magic == fileMagic {
			if length < fileSkip {
				return nil, fmt.Errorf("%w: file section at offset %d too short", ErrInvalidImage, offset)
			}
			sect.Filename = strings.TrimRight(string(sect.Data[:filenameLen]), "\x00")
			sect.Data = sect.Data[fileSkip:]
		}
		im.Sections = append(im.Sections, sect)
		offset = align8(start + length)
	}
	if len(im.Sections) == 0 {
		return nil, fmt.Errorf("%w: no sections found", ErrInvalidImage)
	}
	if last := im.Sections[len(im.Sections)-1]; last.Filename != bootconfName {
		return nil, fmt.Errorf("%w: %s is not the last section", ErrInvalidImage, bootconfName)
	}
	return im, nil
}

func align8(n int) int { return (n + 7) &^ 7 }

// Bootconf returns the contents of bootconf.txt.
func (im *Image) Bootconf() []byte {
	return im.Sections[len(im.Sections)-1].Data
}

// SetBootconf replaces the contents of bootconf.txt.
func (im *Image) SetBootconf(conf []byte) error {
	last := &im.Sections[len(im.Sections)-1]
	if end := last.Offset + headerLen + fileSkip + len(conf); end > im.size {
		return fmt.Errorf("bootconf.txt of %d bytes does not fit into the %d byte image", len(conf), im.size)
	}
	last.Data = append([]byte(nil), conf...)
	return nil
}

// Bytes assembles the image. Unused space is left erased (0xff).
func (im *Image) Bytes() []byte {
	out := bytes.Repeat([]byte{0xff}, im.size)
	offset := 0
	for _, sect := range im.Sections {
		binary.BigEndian.PutUint32(out[offset:], sect.Magic)
		binary.BigEndian.PutUint32(out[offset+4:], uint32(sect.encodedLen()))
		pos := offset + headerLen
		if sect.isFile() {
			name := make([]byte, fileSkip)
			copy(name, sect.Filename)
			pos += copy(out[pos:], name)
		}
		pos += copy(out[pos:], sect.Data)
		offset = align8(pos)
	}
	return out
}
