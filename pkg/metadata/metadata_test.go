package metadata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/blockfs/pkg/disk"
	"github.com/marmos91/blockfs/pkg/disk/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEntry(name string, start, size int64) FileEntry {
	return FileEntry{
		Name:       name,
		Size:       size,
		StartBlock: start,
		Created:    time.Unix(1700000000, 0),
		Used:       true,
	}
}

func sampleMetadata() *Metadata {
	md := &Metadata{}
	md.Entries[0] = newEntry("a.txt", 0, 5)
	md.Entries[3] = newEntry("b.txt", 1, 1024)
	md.FileCount = 2
	return md
}

func TestExtent(t *testing.T) {
	assert.Equal(t, Extent{Start: 4, End: 4}, ExtentFor(4, 0))
	assert.Equal(t, Extent{Start: 4, End: 5}, ExtentFor(4, 1))
	assert.Equal(t, Extent{Start: 4, End: 5}, ExtentFor(4, 512))
	assert.Equal(t, Extent{Start: 4, End: 6}, ExtentFor(4, 513))

	assert.True(t, Extent{0, 2}.Overlaps(Extent{1, 3}))
	assert.False(t, Extent{0, 2}.Overlaps(Extent{2, 3}))
	assert.False(t, Extent{1, 1}.Overlaps(Extent{0, 3}), "empty extents never overlap")
}

func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("a.txt"))
	assert.NoError(t, ValidateName(strings.Repeat("x", NameFieldLen-1)))

	assert.True(t, IsCode(ValidateName(strings.Repeat("x", NameFieldLen)), ErrNameTooLong))
	assert.True(t, IsCode(ValidateName(""), ErrInvalidName))
	assert.True(t, IsCode(ValidateName("a\x00b"), ErrInvalidName))
}

func TestFindByNameAndFreeSlot(t *testing.T) {
	md := sampleMetadata()

	assert.Equal(t, 3, md.FindByName("b.txt"))
	assert.Equal(t, -1, md.FindByName("missing"))
	assert.Equal(t, 1, md.FindFreeSlot())

	md.Entries[3].Used = false
	assert.Equal(t, -1, md.FindByName("b.txt"), "free slots are not matched by name")

	for i := range md.Entries {
		md.Entries[i] = newEntry(fmt.Sprintf("f%d", i), int64(i), 0)
	}
	assert.Equal(t, -1, md.FindFreeSlot())
}

func TestValidate(t *testing.T) {
	const blocks = 10

	require.NoError(t, sampleMetadata().Validate(blocks))

	cases := map[string]func(md *Metadata){
		"count mismatch":  func(md *Metadata) { md.FileCount = 3 },
		"past the end":    func(md *Metadata) { md.Entries[0].StartBlock = blocks },
		"negative size":   func(md *Metadata) { md.Entries[0].Size = -1 },
		"duplicate names": func(md *Metadata) { md.Entries[3].Name = "a.txt" },
		"empty name":      func(md *Metadata) { md.Entries[0].Name = "" },
	}

	for name, corrupt := range cases {
		t.Run(name, func(t *testing.T) {
			md := sampleMetadata()
			corrupt(md)
			assert.True(t, IsCode(md.Validate(blocks), ErrCorrupt))
		})
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	md := sampleMetadata()

	data, err := Encode(md)
	require.NoError(t, err)
	require.Len(t, data, MetadataSize)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, md, decoded)
}

func TestCodec_FreeSlotsAreZeroed(t *testing.T) {
	md := sampleMetadata()
	md.Entries[0].Used = false
	md.FileCount = 1

	data, err := Encode(md)
	require.NoError(t, err)

	assert.NotContains(t, string(data), "a.txt")
	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, FileEntry{}, decoded.Entries[0])
}

func TestCodec_ZeroRegionIsEmptyTable(t *testing.T) {
	md, err := Decode(make([]byte, MetadataSize))
	require.NoError(t, err)
	assert.Equal(t, &Metadata{}, md)
}

func TestCodec_DetectsCorruption(t *testing.T) {
	data, err := Encode(sampleMetadata())
	require.NoError(t, err)

	data[10] ^= 0xFF
	_, err = Decode(data)
	assert.True(t, IsCode(err, ErrCorrupt))

	_, err = Decode(data[:100])
	assert.True(t, IsCode(err, ErrCorrupt))
}

func TestCodec_RejectsLongName(t *testing.T) {
	md := sampleMetadata()
	md.Entries[0].Name = strings.Repeat("n", NameFieldLen)

	_, err := Encode(md)
	assert.True(t, IsCode(err, ErrNameTooLong))
}

func TestTable_SaveLoad(t *testing.T) {
	ctx := context.Background()
	store, err := memory.NewMemoryStore(ctx, 0)
	require.NoError(t, err)

	table := NewTable(store)
	require.NoError(t, table.Format(ctx, DefaultCapacity))
	assert.Equal(t, int64(DataBlocks(DefaultCapacity)), NewDataRegion(store).Blocks())

	md, err := table.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, md.FileCount)

	require.NoError(t, table.Save(ctx, sampleMetadata()))
	md, err = table.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleMetadata(), md)
}

func TestTable_LoadUnformatted(t *testing.T) {
	ctx := context.Background()
	store, err := memory.NewMemoryStore(ctx, 0)
	require.NoError(t, err)

	_, err = NewTable(store).Load(ctx)
	assert.True(t, IsCode(err, ErrCorrupt))
	assert.True(t, errors.Is(err, disk.ErrOutOfBounds))
}

func TestTable_LoadInconsistent(t *testing.T) {
	ctx := context.Background()
	store, err := memory.NewMemoryStore(ctx, DefaultCapacity)
	require.NoError(t, err)

	md := sampleMetadata()
	md.FileCount = 7
	data, err := Encode(md)
	require.NoError(t, err)
	require.NoError(t, store.WriteRegion(ctx, 0, data))

	_, err = NewTable(store).Load(ctx)
	assert.True(t, IsCode(err, ErrCorrupt))
}

func TestTable_FormatTooSmall(t *testing.T) {
	ctx := context.Background()
	store, err := memory.NewMemoryStore(ctx, 0)
	require.NoError(t, err)

	err = NewTable(store).Format(ctx, MetadataSize)
	assert.True(t, IsCode(err, ErrInvalidSize))
}

func TestDataRegion_ReadWrite(t *testing.T) {
	ctx := context.Background()
	store, err := memory.NewMemoryStore(ctx, MetadataSize+4*BlockSize)
	require.NoError(t, err)

	region := NewDataRegion(store)
	require.NoError(t, region.Write(ctx, 1, 10, []byte("data")))

	raw, err := store.ReadRegion(ctx, BlockOffset(1)+10, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), raw)

	_, err = region.Read(ctx, 3, 0, BlockSize+1)
	assert.True(t, IsCode(err, ErrStoreUnavailable))
	assert.True(t, errors.Is(err, disk.ErrOutOfBounds))
}

func TestStoreError(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("outer: %w", WrapError(ErrStoreUnavailable, cause, "read failed"))

	assert.Equal(t, ErrStoreUnavailable, CodeOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "outer: read failed: boom", err.Error())
	assert.Equal(t, "NotFound", ErrNotFound.String())
	assert.Equal(t, "file not found: x", NewError(ErrNotFound, "x", "file not found").Error())
	assert.Equal(t, ErrorCode(0), CodeOf(cause))
}
