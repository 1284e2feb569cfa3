package diagnostics

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/hupe1980/vismatch/codec"
	"github.com/hupe1980/vismatch/internal/hash"
	"github.com/hupe1980/vismatch/model"
)

// ErrCorrupt is returned when a snapshot cannot be parsed.
var ErrCorrupt = errors.New("diagnostics: corrupt snapshot")

// Snapshot layout:
//
//	magic       [4]byte "VMRS"
//	version     uint8
//	compression uint8
//	codecLen    uint8
//	codec       [codecLen]byte
//	size        uint32 (LE, uncompressed payload length)
//	checksum    uint32 (LE, CRC32C of the uncompressed payload)
//	payload     []byte
var magic = [4]byte{'V', 'M', 'R', 'S'}

const version = 1

// MaxSnapshotSize bounds the uncompressed payload of a snapshot. Decode
// rejects larger sizes before allocating for them.
const MaxSnapshotSize = 64 << 20

// Encode serializes a refset into a self-describing snapshot.
func Encode(refset model.Refset, c codec.Codec, comp Compression) ([]byte, error) {
	if c == nil {
		c = codec.Default
	}
	name := c.Name()
	if len(name) > 255 {
		return nil, fmt.Errorf("diagnostics: codec name %q too long", name)
	}

	raw, err := c.Marshal(refset)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: encode refset %d: %w", refset.ImageID, err)
	}
	if len(raw) > MaxSnapshotSize {
		return nil, fmt.Errorf("diagnostics: refset %d encodes to %d bytes, limit is %d", refset.ImageID, len(raw), MaxSnapshotSize)
	}

	payload, used, err := compress(raw, comp)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, 4+3+len(name)+8+len(payload))
	out = append(out, magic[:]...)
	out = append(out, version, byte(used), byte(len(name)))
	out = append(out, name...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(raw)))
	out = binary.LittleEndian.AppendUint32(out, hash.CRC32C(raw))
	out = append(out, payload...)
	return out, nil
}

// Header describes an encoded snapshot.
type Header struct {
	Codec       string
	Compression Compression
	Size        int
	Checksum    uint32
}

func parseHeader(data []byte) (Header, []byte, error) {
	if len(data) < 7 || [4]byte(data[:4]) != magic {
		return Header{}, nil, ErrCorrupt
	}
	if data[4] != version {
		return Header{}, nil, fmt.Errorf("%w: version %d", ErrCorrupt, data[4])
	}

	comp := Compression(data[5])
	n := int(data[6])
	rest := data[7:]
	if len(rest) < n+8 {
		return Header{}, nil, ErrCorrupt
	}

	size := binary.LittleEndian.Uint32(rest[n:])
	if size > MaxSnapshotSize {
		return Header{}, nil, fmt.Errorf("%w: size %d exceeds %d", ErrCorrupt, size, MaxSnapshotSize)
	}

	h := Header{
		Codec:       string(rest[:n]),
		Compression: comp,
		Size:        int(size),
		Checksum:    binary.LittleEndian.Uint32(rest[n+4:]),
	}
	return h, rest[n+8:], nil
}

// Decode parses a snapshot produced by Encode. The returned refset does not
// alias data.
func Decode(data []byte) (model.Refset, Header, error) {
	h, payload, err := parseHeader(data)
	if err != nil {
		return model.Refset{}, Header{}, err
	}

	c, ok := codec.ByName(h.Codec)
	if !ok {
		return model.Refset{}, h, fmt.Errorf("%w: unknown codec %q", ErrCorrupt, h.Codec)
	}

	raw, err := decompress(payload, h.Compression, h.Size)
	if err != nil {
		return model.Refset{}, h, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if hash.CRC32C(raw) != h.Checksum {
		return model.Refset{}, h, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	var refset model.Refset
	if err := c.Unmarshal(raw, &refset); err != nil {
		return model.Refset{}, h, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return refset, h, nil
}
