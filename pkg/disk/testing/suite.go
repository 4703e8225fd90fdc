package testing

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/marmos91/blockfs/pkg/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite is a contract test suite for disk.Store implementations.
// It tests the interface contract, not implementation details, so every
// backend (memory, file, badger) runs the same checks.
//
// Usage:
//
//	func TestMyStore(t *testing.T) {
//	    suite := &testing.StoreTestSuite{
//	        NewStore: func(t *testing.T) disk.Store {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh, uninitialized store for each test.
	// The suite closes it when the test ends.
	NewStore func(t *testing.T) disk.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("Initialize_ZeroFilled", suite.testInitializeZeroFilled)
	t.Run("Initialize_InvalidCapacity", suite.testInitializeInvalidCapacity)
	t.Run("Initialize_TruncatesOldData", suite.testInitializeTruncates)
	t.Run("WriteRead_RoundTrip", suite.testWriteReadRoundTrip)
	t.Run("WriteRead_Unaligned", suite.testWriteReadUnaligned)
	t.Run("WriteRead_ZeroLength", suite.testZeroLength)
	t.Run("Region_OutOfBounds", suite.testOutOfBounds)
	t.Run("Context_Cancelled", suite.testContextCancelled)
}

const testCapacity = 8192

func testContext() context.Context {
	return context.Background()
}

func (suite *StoreTestSuite) newInitialized(t *testing.T) disk.Store {
	t.Helper()

	store := suite.NewStore(t)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Initialize(testContext(), testCapacity))
	return store
}

func (suite *StoreTestSuite) testInitializeZeroFilled(t *testing.T) {
	store := suite.newInitialized(t)

	assert.Equal(t, int64(testCapacity), store.Capacity())

	data, err := store.ReadRegion(testContext(), 0, testCapacity)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, testCapacity), data)
}

func (suite *StoreTestSuite) testInitializeInvalidCapacity(t *testing.T) {
	store := suite.NewStore(t)
	t.Cleanup(func() { _ = store.Close() })

	err := store.Initialize(testContext(), 0)
	assert.ErrorIs(t, err, disk.ErrInvalidCapacity)

	err = store.Initialize(testContext(), -512)
	assert.ErrorIs(t, err, disk.ErrInvalidCapacity)
}

func (suite *StoreTestSuite) testInitializeTruncates(t *testing.T) {
	store := suite.newInitialized(t)

	require.NoError(t, store.WriteRegion(testContext(), 100, []byte("stale")))
	require.NoError(t, store.Initialize(testContext(), 4096))

	assert.Equal(t, int64(4096), store.Capacity())
	data, err := store.ReadRegion(testContext(), 100, 5)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 5), data)
}

func (suite *StoreTestSuite) testWriteReadRoundTrip(t *testing.T) {
	store := suite.newInitialized(t)

	payload := []byte("hello block store")
	require.NoError(t, store.WriteRegion(testContext(), 4096, payload))

	data, err := store.ReadRegion(testContext(), 4096, len(payload))
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func (suite *StoreTestSuite) testWriteReadUnaligned(t *testing.T) {
	store := suite.newInitialized(t)

	// Spans three 512-byte pages with ragged edges.
	payload := bytes.Repeat([]byte{0xAB}, 1100)
	require.NoError(t, store.WriteRegion(testContext(), 300, payload))

	data, err := store.ReadRegion(testContext(), 299, 1102)
	require.NoError(t, err)
	assert.Equal(t, byte(0), data[0])
	assert.Equal(t, payload, data[1:1101])
	assert.Equal(t, byte(0), data[1101])

	// Overwrite the middle and make sure the edges survive.
	require.NoError(t, store.WriteRegion(testContext(), 700, []byte("mid")))
	data, err = store.ReadRegion(testContext(), 698, 7)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAB, 0xAB, 'm', 'i', 'd', 0xAB, 0xAB}, data)
}

func (suite *StoreTestSuite) testZeroLength(t *testing.T) {
	store := suite.newInitialized(t)

	require.NoError(t, store.WriteRegion(testContext(), testCapacity, nil))
	data, err := store.ReadRegion(testContext(), testCapacity, 0)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func (suite *StoreTestSuite) testOutOfBounds(t *testing.T) {
	store := suite.newInitialized(t)

	_, err := store.ReadRegion(testContext(), testCapacity-2, 4)
	assert.ErrorIs(t, err, disk.ErrOutOfBounds)

	_, err = store.ReadRegion(testContext(), -1, 1)
	assert.ErrorIs(t, err, disk.ErrOutOfBounds)

	// offset+length overflows int64
	_, err = store.ReadRegion(testContext(), 1, math.MaxInt)
	assert.ErrorIs(t, err, disk.ErrOutOfBounds)

	_, err = store.ReadRegion(testContext(), math.MaxInt64, 1)
	assert.ErrorIs(t, err, disk.ErrOutOfBounds)

	err = store.WriteRegion(testContext(), testCapacity-1, []byte("xy"))
	assert.ErrorIs(t, err, disk.ErrOutOfBounds)

	// The failed write must not have touched the last byte.
	data, err := store.ReadRegion(testContext(), testCapacity-1, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0}, data)
}

func (suite *StoreTestSuite) testContextCancelled(t *testing.T) {
	store := suite.newInitialized(t)

	ctx, cancel := context.WithCancel(testContext())
	cancel()

	_, err := store.ReadRegion(ctx, 0, 1)
	assert.ErrorIs(t, err, context.Canceled)

	err = store.WriteRegion(ctx, 0, []byte{1})
	assert.ErrorIs(t, err, context.Canceled)
}
