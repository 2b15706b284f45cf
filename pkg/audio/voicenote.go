package audio

import (
	"encoding/binary"
	"errors"
	"fmt"

	"layeh.com/gopus"
)

// Opus in an OGG container is always clocked at 48 kHz.
const (
	opusSampleRate = 48000

	// maxOpusFrameSize is the largest Opus frame duration (120 ms) in samples
	// per channel. The decoder buffer is sized for this and trimmed to the
	// actual decoded length.
	maxOpusFrameSize = opusSampleRate * 120 / 1000 // 5760
)

var (
	// ErrNotOgg is returned when the payload does not start with an OGG page.
	ErrNotOgg = errors.New("audio: not an OGG stream")

	// ErrNotOpus is returned when the OGG stream does not carry an Opus track.
	ErrNotOpus = errors.New("audio: OGG stream does not contain Opus audio")
)

// DecodeOggOpus decodes an OGG/Opus file (the format used for chat voice
// notes) into raw interleaved 16-bit PCM at 48 kHz. It returns the PCM data
// and the channel count declared in the OpusHead header.
//
// Packets that fail to decode are skipped; an error is returned only when the
// container itself is malformed or no audio could be recovered at all.
func DecodeOggOpus(data []byte) (pcm []byte, channels int, err error) {
	packets, err := oggPackets(data)
	if err != nil {
		return nil, 0, err
	}
	if len(packets) < 2 {
		return nil, 0, fmt.Errorf("%w: missing header packets", ErrNotOpus)
	}

	// Packet 0 must be OpusHead, packet 1 OpusTags.
	head := packets[0]
	if len(head) < 10 || string(head[:8]) != "OpusHead" {
		return nil, 0, ErrNotOpus
	}
	channels = int(head[9])
	if channels < 1 || channels > 2 {
		return nil, 0, fmt.Errorf("audio: unsupported channel count %d", channels)
	}

	dec, err := gopus.NewDecoder(opusSampleRate, channels)
	if err != nil {
		return nil, 0, fmt.Errorf("audio: create opus decoder: %w", err)
	}

	var out []byte
	decoded := 0
	for _, pkt := range packets[2:] {
		if len(pkt) == 0 {
			continue
		}
		samples, err := dec.Decode(pkt, maxOpusFrameSize, false)
		if err != nil {
			// A corrupt packet mid-stream should not discard the rest of the
			// recording.
			continue
		}
		out = append(out, int16sToBytes(samples)...)
		decoded++
	}

	if decoded == 0 {
		return nil, 0, errors.New("audio: no decodable opus packets")
	}
	return out, channels, nil
}

// oggPackets splits an OGG byte stream into logical packets by walking its
// pages and reassembling lacing segments. Packets spanning page boundaries
// (continuation flag set) are stitched together.
func oggPackets(data []byte) ([][]byte, error) {
	if len(data) < 27 || string(data[:4]) != "OggS" {
		return nil, ErrNotOgg
	}

	var (
		packets [][]byte
		partial []byte
	)

	off := 0
	for off+27 <= len(data) {
		if string(data[off:off+4]) != "OggS" {
			return nil, fmt.Errorf("%w: bad page marker at offset %d", ErrNotOgg, off)
		}
		if data[off+4] != 0 {
			return nil, fmt.Errorf("audio: unsupported OGG version %d", data[off+4])
		}

		nsegs := int(data[off+26])
		tableEnd := off + 27 + nsegs
		if tableEnd > len(data) {
			return nil, errors.New("audio: truncated OGG segment table")
		}
		segTable := data[off+27 : tableEnd]

		body := tableEnd
		for _, lace := range segTable {
			n := int(lace)
			if body+n > len(data) {
				return nil, errors.New("audio: truncated OGG page body")
			}
			partial = append(partial, data[body:body+n]...)
			body += n
			// A lacing value below 255 terminates the current packet.
			if n < 255 {
				packets = append(packets, partial)
				partial = nil
			}
		}
		off = body
	}

	// An unterminated trailing packet means the upload was cut off; keep what
	// decoded so far rather than failing the whole clip.
	if len(partial) > 0 {
		packets = append(packets, partial)
	}
	return packets, nil
}

// granulePosition reads the 64-bit granule position of the OGG page starting
// at off. Used by tests to validate synthetic streams.
func granulePosition(data []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(data[off+6 : off+14])
}
