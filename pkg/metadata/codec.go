package metadata

import (
	"bytes"
	"encoding/binary"
	"math"
	"time"

	xdr "github.com/rasky/go-xdr/xdr2"
	"github.com/zeebo/xxh3"
)

// On-disk record
// ==============
//
// The record is XDR encoded (big-endian, 4-byte aligned):
//
//	offset  size  field
//	0       4     file count (int)
//	4       2496  48 entries x 52 bytes:
//	                name         32  fixed opaque, NUL padded
//	                size          4  int
//	                start block   4  int
//	                created       8  hyper, unix seconds
//	                used          4  bool
//	2500    1588  zero padding
//	4088    8     xxh3-64 of bytes [0, 4088), big-endian
//
// An all-zero region (a container initialized but never formatted) is read
// as an empty table.

const (
	recordSize     = 4 + MaxFiles*entrySize
	entrySize      = NameFieldLen + 4 + 4 + 8 + 4
	checksumOffset = MetadataSize - 8
)

type entryRecord struct {
	Name       [NameFieldLen]byte
	Size       int32
	StartBlock int32
	Created    int64
	Used       bool
}

type tableRecord struct {
	FileCount int32
	Entries   [MaxFiles]entryRecord
}

// Encode serializes md into a MetadataSize-byte record.
func Encode(md *Metadata) ([]byte, error) {
	rec := tableRecord{FileCount: int32(md.FileCount)}

	for i := range md.Entries {
		e := &md.Entries[i]
		if !e.Used {
			// Free slots are written zeroed so stale names never linger.
			continue
		}
		if len(e.Name) >= NameFieldLen {
			return nil, NewError(ErrNameTooLong, e.Name, "cannot encode slot %d", i)
		}
		if e.Size > math.MaxInt32 || e.StartBlock > math.MaxInt32 {
			return nil, NewError(ErrCorrupt, e.Name, "slot %d does not fit the on-disk record", i)
		}

		r := &rec.Entries[i]
		copy(r.Name[:], e.Name)
		r.Size = int32(e.Size)
		r.StartBlock = int32(e.StartBlock)
		if !e.Created.IsZero() {
			r.Created = e.Created.Unix()
		}
		r.Used = true
	}

	var buf bytes.Buffer
	buf.Grow(MetadataSize)
	if _, err := xdr.Marshal(&buf, &rec); err != nil {
		return nil, WrapError(ErrCorrupt, err, "failed to encode metadata")
	}
	if buf.Len() != recordSize {
		return nil, NewError(ErrCorrupt, "", "encoded record is %d bytes, want %d", buf.Len(), recordSize)
	}

	out := make([]byte, MetadataSize)
	copy(out, buf.Bytes())
	binary.BigEndian.PutUint64(out[checksumOffset:], xxh3.Hash(out[:checksumOffset]))
	return out, nil
}

// Decode parses a MetadataSize-byte record. It verifies the checksum but not
// the table's self-consistency; see Metadata.Validate.
func Decode(data []byte) (*Metadata, error) {
	if len(data) < MetadataSize {
		return nil, NewError(ErrCorrupt, "", "short metadata record: %d of %d bytes", len(data), MetadataSize)
	}
	data = data[:MetadataSize]

	if isZero(data) {
		return &Metadata{}, nil
	}

	want := binary.BigEndian.Uint64(data[checksumOffset:])
	if got := xxh3.Hash(data[:checksumOffset]); got != want {
		return nil, NewError(ErrCorrupt, "", "metadata checksum mismatch (%016x != %016x)", got, want)
	}

	var rec tableRecord
	if _, err := xdr.Unmarshal(bytes.NewReader(data[:recordSize]), &rec); err != nil {
		return nil, WrapError(ErrCorrupt, err, "failed to decode metadata")
	}

	md := &Metadata{FileCount: int(rec.FileCount)}
	for i := range rec.Entries {
		r := &rec.Entries[i]
		if !r.Used {
			continue
		}

		nul := bytes.IndexByte(r.Name[:], 0)
		if nul < 0 {
			return nil, NewError(ErrCorrupt, "", "slot %d name is not NUL terminated", i)
		}

		md.Entries[i] = FileEntry{
			Name:       string(r.Name[:nul]),
			Size:       int64(r.Size),
			StartBlock: int64(r.StartBlock),
			Created:    time.Unix(r.Created, 0),
			Used:       true,
		}
	}

	return md, nil
}

func isZero(data []byte) bool {
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}
