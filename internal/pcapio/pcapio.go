// Package pcapio reads and writes the classic libpcap savefile format
// (global header + per-packet record header + raw frame bytes), the
// same container original tcppump wrote via libpcap's pcap_dump_open.
// No pack example vendors a pcap library, so this format is implemented
// directly against the well-documented binary layout rather than
// reaching for gopacket, which none of the example repos import.
package pcapio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const (
	magicLittleEndian = 0xa1b2c3d4
	versionMajor      = 2
	versionMinor      = 4
	linkTypeEthernet  = 1 // DLT_EN10MB
	defaultSnapLen    = 65535

	globalHeaderSize = 24
	recordHeaderSize = 16
)

// ErrBadMagic indicates the file does not start with a recognized pcap
// magic number (big- or little-endian 0xa1b2c3d4).
var ErrBadMagic = errors.New("pcapio: not a pcap file (bad magic number)")

// ErrUnsupportedLinkType indicates the savefile's link-layer type is not
// Ethernet.
var ErrUnsupportedLinkType = errors.New("pcapio: unsupported link-layer type")

// -------------------------------------------------------------------------
// Writer
// -------------------------------------------------------------------------

// Writer appends Ethernet frames to a pcap savefile, one record per
// call to WritePacket.
type Writer struct {
	f   *os.File
	buf *bufio.Writer
}

// Create opens path for writing and emits the pcap global header
// (link-layer type Ethernet, snap length 65535).
func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("pcapio: create %s: %w", path, err)
	}

	w := &Writer{f: f, buf: bufio.NewWriter(f)}
	if err := w.writeGlobalHeader(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return w, nil
}

func (w *Writer) writeGlobalHeader() error {
	var hdr [globalHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], magicLittleEndian)
	binary.LittleEndian.PutUint16(hdr[4:6], versionMajor)
	binary.LittleEndian.PutUint16(hdr[6:8], versionMinor)
	// bytes 8-11 (thiszone) and 12-15 (sigfigs) are left zero.
	binary.LittleEndian.PutUint32(hdr[16:20], defaultSnapLen)
	binary.LittleEndian.PutUint32(hdr[20:24], linkTypeEthernet)

	_, err := w.buf.Write(hdr[:])
	if err != nil {
		return fmt.Errorf("pcapio: write global header: %w", err)
	}
	return nil
}

// WritePacket appends one record with the given capture timestamp and
// frame bytes.
func (w *Writer) WritePacket(ts time.Time, frame []byte) error {
	var hdr [recordHeaderSize]byte
	sec := ts.Unix()
	usec := ts.Nanosecond() / int(time.Microsecond)

	binary.LittleEndian.PutUint32(hdr[0:4], uint32(sec))
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(usec))
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(len(frame)))
	binary.LittleEndian.PutUint32(hdr[12:16], uint32(len(frame)))

	if _, err := w.buf.Write(hdr[:]); err != nil {
		return fmt.Errorf("pcapio: write record header: %w", err)
	}
	if _, err := w.buf.Write(frame); err != nil {
		return fmt.Errorf("pcapio: write frame: %w", err)
	}
	return nil
}

// Close flushes buffered writes and closes the underlying file.
func (w *Writer) Close() error {
	if err := w.buf.Flush(); err != nil {
		_ = w.f.Close()
		return fmt.Errorf("pcapio: flush: %w", err)
	}
	if err := w.f.Close(); err != nil {
		return fmt.Errorf("pcapio: close: %w", err)
	}
	return nil
}

// -------------------------------------------------------------------------
// Reader
// -------------------------------------------------------------------------

// Reader parses a pcap savefile previously written by Writer (or by
// libpcap itself, for Ethernet-linked captures).
type Reader struct {
	r      *bufio.Reader
	f      *os.File
	bigEnd bool
}

// Open reads and validates the global header of path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pcapio: open %s: %w", path, err)
	}

	r := &Reader{r: bufio.NewReader(f), f: f}
	if err := r.readGlobalHeader(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return r, nil
}

func (r *Reader) readGlobalHeader() error {
	var hdr [globalHeaderSize]byte
	if _, err := io.ReadFull(r.r, hdr[:]); err != nil {
		return fmt.Errorf("pcapio: read global header: %w", err)
	}

	switch binary.LittleEndian.Uint32(hdr[0:4]) {
	case magicLittleEndian:
		r.bigEnd = false
	case 0xd4c3b2a1: // little-endian bytes of a big-endian-written magic
		r.bigEnd = true
	default:
		return ErrBadMagic
	}

	linkType := r.order().Uint32(hdr[20:24])
	if linkType != linkTypeEthernet {
		return fmt.Errorf("link type %d: %w", linkType, ErrUnsupportedLinkType)
	}
	return nil
}

func (r *Reader) order() binary.ByteOrder {
	if r.bigEnd {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Next returns the next record's capture timestamp and frame bytes, or
// io.EOF once the file is exhausted.
func (r *Reader) Next() (time.Time, []byte, error) {
	var hdr [recordHeaderSize]byte
	if _, err := io.ReadFull(r.r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return time.Time{}, nil, io.EOF
		}
		return time.Time{}, nil, fmt.Errorf("pcapio: read record header: %w", err)
	}

	order := r.order()
	sec := order.Uint32(hdr[0:4])
	usec := order.Uint32(hdr[4:8])
	capLen := order.Uint32(hdr[8:12])

	frame := make([]byte, capLen)
	if _, err := io.ReadFull(r.r, frame); err != nil {
		return time.Time{}, nil, fmt.Errorf("pcapio: read frame: %w", err)
	}

	ts := time.Unix(int64(sec), int64(usec)*int64(time.Microsecond))
	return ts, frame, nil
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.f.Close()
}
