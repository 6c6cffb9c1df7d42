// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/dyadchain/dyadd/types/chainhash"
	"gitlab.com/dyadchain/dyadd/types/pow"
)

// checkPowDataRoundtrip decodes the passed hex, re-encodes the result and
// requires the bytes to survive unchanged.
func checkPowDataRoundtrip(t *testing.T, hexStr string) PowData {
	t.Helper()

	raw, err := hex.DecodeString(hexStr)
	require.NoError(t, err)

	var powData PowData
	require.NoError(t, ReadPowData(bytes.NewReader(raw), &powData))

	var buf bytes.Buffer
	require.NoError(t, WritePowData(&buf, &powData))
	require.Equal(t, hexStr, hex.EncodeToString(buf.Bytes()))

	return powData
}

func TestPowDataSerializationStandalone(t *testing.T) {
	powData := checkPowDataRoundtrip(t,
		"02"+
			"12345678"+
			"00000000"+
			"0000000000000000000000000000000000000000000000000000000000000000"+
			"1234000000000000000000000000000000000000000000000000000000005678"+
			"00000000"+
			"00000000"+
			"123abcde")

	assert.False(t, powData.MergeMined())
	assert.Equal(t, pow.AlgoScrypt, powData.CoreAlgo())
	assert.Equal(t, uint32(0x78563412), powData.Bits)

	require.NotNil(t, powData.FakeHeader)
	require.Nil(t, powData.AuxPow)
	assert.Equal(t, uint32(0xdebc3a12), powData.FakeHeader.Nonce)
	assert.Equal(t,
		"7856000000000000000000000000000000000000000000000000000000003412",
		powData.FakeHeader.MerkleRoot.String())
}

func TestPowDataSerializationMergeMined(t *testing.T) {
	auxpow := &AuxPow{
		Parent: ExternalHeader{
			Version:    2,
			MerkleRoot: hashFromByte(0xaa),
			Bits:       0x207fffff,
			Nonce:      42,
		},
		CoinbaseBranch: []chainhash.Hash{hashFromByte(1), hashFromByte(2)},
		BranchIndex:    3,
		ChainID:        1829,
	}
	original := PowData{
		Algo:   pow.AlgoSHA256D | pow.FlagMergeMined,
		Bits:   0x207fffff,
		AuxPow: auxpow,
	}

	var buf bytes.Buffer
	require.NoError(t, WritePowData(&buf, &original))

	decoded := checkPowDataRoundtrip(t, hex.EncodeToString(buf.Bytes()))
	assert.True(t, decoded.MergeMined())
	assert.Equal(t, pow.AlgoSHA256D, decoded.CoreAlgo())
	require.NotNil(t, decoded.AuxPow)
	require.Nil(t, decoded.FakeHeader)
	assert.Equal(t, auxpow.ChainID, decoded.AuxPow.ChainID)
	assert.Equal(t, auxpow.BranchIndex, decoded.AuxPow.BranchIndex)
	assert.Equal(t, auxpow.CoinbaseBranch, decoded.AuxPow.CoinbaseBranch)
	assert.Equal(t, auxpow.Parent.BlockHash(), decoded.AuxPow.Parent.BlockHash())
}

func TestPowDataMissingPayload(t *testing.T) {
	mergeMined := PowData{Algo: pow.AlgoSHA256D | pow.FlagMergeMined, Bits: 0x207fffff}
	var buf bytes.Buffer
	assert.Error(t, WritePowData(&buf, &mergeMined))
	_, err := mergeMined.PowHash()
	assert.Error(t, err)

	standalone := PowData{Algo: pow.AlgoScrypt, Bits: 0x207fffff}
	assert.Error(t, WritePowData(&buf, &standalone))
	_, err = standalone.PowHash()
	assert.Error(t, err)
}
