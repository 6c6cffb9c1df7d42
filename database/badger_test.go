// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/dyadchain/dyadd/types/chainhash"
	"gitlab.com/dyadchain/dyadd/types/pow"
	"gitlab.com/dyadchain/dyadd/types/wire"
)

func storedHeader(height int32, salt string) *wire.BlockHeader {
	return &wire.BlockHeader{
		Version:    1,
		Height:     height,
		MerkleRoot: chainhash.DoubleHashH([]byte(salt)),
		Timestamp:  time.Unix(1700000000+int64(height)*60, 0),
		PowData: wire.PowData{
			Algo:       pow.AlgoScrypt,
			Bits:       0x207fffff,
			FakeHeader: &wire.FakeHeader{Nonce: uint32(height)},
		},
	}
}

func TestBadgerStoreRoundTrip(t *testing.T) {
	store, err := OpenMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	// Insert out of height order, expect iteration in height order.
	records := []BlockNodeRecord{
		{Header: storedHeader(2, "two"), Status: 1},
		{Header: storedHeader(0, "zero"), Status: 1},
		{Header: storedHeader(1, "one"), Status: 3},
	}
	require.NoError(t, store.PutBlockNodes(records))

	var got []BlockNodeRecord
	require.NoError(t, store.ForEachBlockNode(func(rec BlockNodeRecord) error {
		got = append(got, rec)
		return nil
	}))

	require.Len(t, got, 3)
	for i, rec := range got {
		assert.Equal(t, int32(i), rec.Header.Height)
	}
	assert.Equal(t, byte(3), got[1].Status)
	assert.Equal(t, records[1].Header.BlockHash(), got[0].Header.BlockHash())
}

func TestBadgerStoreOverwriteStatus(t *testing.T) {
	store, err := OpenMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	header := storedHeader(0, "zero")
	require.NoError(t, store.PutBlockNodes([]BlockNodeRecord{{Header: header, Status: 0}}))
	require.NoError(t, store.PutBlockNodes([]BlockNodeRecord{{Header: header, Status: 2}}))

	count := 0
	require.NoError(t, store.ForEachBlockNode(func(rec BlockNodeRecord) error {
		count++
		assert.Equal(t, byte(2), rec.Status)
		return nil
	}))
	assert.Equal(t, 1, count)
}

func TestBadgerStoreBestTip(t *testing.T) {
	store, err := OpenMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	_, found, err := store.BestTip()
	require.NoError(t, err)
	require.False(t, found)

	want := storedHeader(5, "tip").BlockHash()
	require.NoError(t, store.PutBestTip(want))

	got, found, err := store.BestTip()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want, got)
}

func TestBadgerStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := OpenBadgerStore(dir)
	require.NoError(t, err)

	header := storedHeader(0, "zero")
	require.NoError(t, store.PutBlockNodes([]BlockNodeRecord{{Header: header, Status: 1}}))
	require.NoError(t, store.PutBestTip(header.BlockHash()))
	require.NoError(t, store.Close())

	store, err = OpenBadgerStore(dir)
	require.NoError(t, err)
	defer store.Close()

	tip, found, err := store.BestTip()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, header.BlockHash(), tip)

	count := 0
	require.NoError(t, store.ForEachBlockNode(func(rec BlockNodeRecord) error {
		count++
		assert.Equal(t, header.BlockHash(), rec.Header.BlockHash())
		return nil
	}))
	assert.Equal(t, 1, count)
}

func TestMemoryStoreIsDisposable(t *testing.T) {
	first, err := OpenMemoryStore()
	require.NoError(t, err)
	second, err := OpenMemoryStore()
	require.NoError(t, err)
	defer second.Close()

	// Each instance owns its own backing directory.
	require.NotEmpty(t, first.tmpDir)
	assert.NotEqual(t, first.tmpDir, second.tmpDir)

	header := storedHeader(0, "ephemeral")
	require.NoError(t, first.PutBestTip(header.BlockHash()))

	_, found, err := second.BestTip()
	require.NoError(t, err)
	assert.False(t, found)

	// Closing removes the backing directory.
	require.NoError(t, first.Close())
	_, err = os.Stat(first.tmpDir)
	assert.True(t, os.IsNotExist(err))
}
