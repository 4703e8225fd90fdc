package metadata

// Metadata is the in-memory form of the superblock: a fixed array of slots
// plus a redundant count of used slots.
//
// Lookups are linear scans over MaxFiles slots. With 48 slots a name index
// would cost more to maintain than it saves.
type Metadata struct {
	// FileCount caches the number of used slots; a mismatch means corruption
	FileCount int

	// Entries holds every slot, used or free
	Entries [MaxFiles]FileEntry
}

// FindByName returns the slot index of the used entry named name, or -1.
func (m *Metadata) FindByName(name string) int {
	for i := range m.Entries {
		if m.Entries[i].Used && m.Entries[i].Name == name {
			return i
		}
	}
	return -1
}

// FindFreeSlot returns the lowest unused slot index, or -1 if the table is full.
func (m *Metadata) FindFreeSlot() int {
	for i := range m.Entries {
		if !m.Entries[i].Used {
			return i
		}
	}
	return -1
}

// UsedCount counts used slots.
func (m *Metadata) UsedCount() int {
	n := 0
	for i := range m.Entries {
		if m.Entries[i].Used {
			n++
		}
	}
	return n
}

// Clone returns a deep copy. Entries hold only values, so an array copy is
// enough.
func (m *Metadata) Clone() *Metadata {
	c := *m
	return &c
}

// Validate checks the record's self-consistency against a data region of
// dataBlocks blocks and returns an ErrCorrupt StoreError on the first
// violation.
func (m *Metadata) Validate(dataBlocks int64) error {
	if used := m.UsedCount(); m.FileCount != used {
		return NewError(ErrCorrupt, "", "file count %d does not match %d used slots", m.FileCount, used)
	}

	capacity := dataBlocks * BlockSize
	seen := make(map[string]int, m.FileCount)

	for i := range m.Entries {
		e := &m.Entries[i]
		if !e.Used {
			continue
		}

		if err := ValidateName(e.Name); err != nil {
			return NewError(ErrCorrupt, e.Name, "slot %d has an invalid name", i)
		}
		if e.Size < 0 || e.StartBlock < 0 {
			return NewError(ErrCorrupt, e.Name, "slot %d has negative size or start block", i)
		}
		if e.StartBlock*BlockSize+e.Size > capacity {
			return NewError(ErrCorrupt, e.Name, "slot %d extends past the data region", i)
		}
		if prev, dup := seen[e.Name]; dup {
			return NewError(ErrCorrupt, e.Name, "slots %d and %d share a name", prev, i)
		}
		seen[e.Name] = i
	}

	return nil
}
