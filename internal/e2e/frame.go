// Package e2e implements the end-to-end half-transfer protocol (§4.K):
// a framed stream over TCP or UDP carrying ordered data segments between
// a source and destination Target Thread, with a terminal EOF marker.
package e2e

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Magic discriminates a DATA frame from an EOF frame.
type Magic uint32

const (
	MagicData Magic = 0x4d414749
	MagicEOF  Magic = 0x4d414751
)

// HeaderSize is the fixed on-wire header size in bytes (§4.K frame layout).
const HeaderSize = 32

// Header is one frame's fixed header.
type Header struct {
	Magic          Magic
	SequenceNumber uint64
	ByteLocation   uint64
	Length         uint64
	// Reserved occupies the final 4 header bytes on the wire; kept as a
	// field so WriteHeader/ReadHeader round-trip the full 32 bytes.
	Reserved uint32
}

// WriteHeader serializes hdr in the big-endian wire layout.
func WriteHeader(w io.Writer, hdr Header) error {
	var buf [HeaderSize]byte
	binary.BigEndian.PutUint32(buf[0:4], uint32(hdr.Magic))
	binary.BigEndian.PutUint64(buf[4:12], hdr.SequenceNumber)
	binary.BigEndian.PutUint64(buf[12:20], hdr.ByteLocation)
	binary.BigEndian.PutUint64(buf[20:28], hdr.Length)
	binary.BigEndian.PutUint32(buf[28:32], hdr.Reserved)
	_, err := w.Write(buf[:])
	return err
}

// ReadHeader deserializes a Header from r.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, err
	}
	return Header{
		Magic:          Magic(binary.BigEndian.Uint32(buf[0:4])),
		SequenceNumber: binary.BigEndian.Uint64(buf[4:12]),
		ByteLocation:   binary.BigEndian.Uint64(buf[12:20]),
		Length:         binary.BigEndian.Uint64(buf[20:28]),
		Reserved:       binary.BigEndian.Uint32(buf[28:32]),
	}, nil
}

// WriteFrame writes a complete DATA frame (header + payload) to w.
func WriteFrame(w io.Writer, seq, byteLocation uint64, payload []byte) error {
	hdr := Header{Magic: MagicData, SequenceNumber: seq, ByteLocation: byteLocation, Length: uint64(len(payload))}
	if err := WriteHeader(w, hdr); err != nil {
		return fmt.Errorf("e2e: write data header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("e2e: write payload: %w", err)
	}
	return nil
}

// WriteEOF writes a terminal EOF frame (no payload) to w.
func WriteEOF(w io.Writer, seq uint64) error {
	hdr := Header{Magic: MagicEOF, SequenceNumber: seq}
	return WriteHeader(w, hdr)
}

// ReadFrame reads one frame's header and, for a DATA frame, its payload
// into buf (which must be at least Length bytes; a too-small buf is a
// protocol error rather than silently truncating data). Returns the
// header and the slice of buf actually filled.
func ReadFrame(r io.Reader, buf []byte) (Header, []byte, error) {
	hdr, err := ReadHeader(r)
	if err != nil {
		return Header{}, nil, err
	}
	if hdr.Magic != MagicData && hdr.Magic != MagicEOF {
		return hdr, nil, fmt.Errorf("e2e: bad magic 0x%x", uint32(hdr.Magic))
	}
	if hdr.Magic == MagicEOF {
		return hdr, nil, nil
	}
	if hdr.Length > uint64(len(buf)) {
		return hdr, nil, fmt.Errorf("e2e: frame length %d exceeds buffer capacity %d", hdr.Length, len(buf))
	}
	payload := buf[:hdr.Length]
	if _, err := io.ReadFull(r, payload); err != nil {
		return hdr, nil, fmt.Errorf("e2e: read payload: %w", err)
	}
	return hdr, payload, nil
}
