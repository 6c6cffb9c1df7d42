// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"
	"time"

	"gitlab.com/dyadchain/dyadd/types/chainhash"
)

// ExternalHeaderLen is the serialized size of an external parent chain
// header, the classic 80-byte layout.
const ExternalHeaderLen = 16 + chainhash.HashSize*2

// ExternalHeader is the header of the sha256d parent chain block that
// carries a merge-mining proof.  Its merkle root commits, among the parent
// chain's own transactions, to a leaf vouching for one of our blocks.
type ExternalHeader struct {
	Version    int32
	PrevBlock  chainhash.Hash
	MerkleRoot chainhash.Hash
	Timestamp  time.Time
	Bits       uint32
	Nonce      uint32
}

// BlockHash computes the parent chain identifier hash of the header, which
// is also its proof of work hash (the parent chain is sha256d).
func (h *ExternalHeader) BlockHash() chainhash.Hash {
	buf := bytes.NewBuffer(make([]byte, 0, ExternalHeaderLen))
	_ = WriteElements(buf, h.Version, &h.PrevBlock, &h.MerkleRoot,
		Uint32Time(h.Timestamp), h.Bits, h.Nonce)
	return chainhash.DoubleHashH(buf.Bytes())
}

// AuxPow is a merge-mining proof: an external parent chain header whose
// committed data provably includes this chain's block hash, plus the chain
// id tag the proof was produced for.
type AuxPow struct {
	// Parent is the external header.  Its own proof of work must be valid
	// and is what secures the merge-mined block.
	Parent ExternalHeader

	// CoinbaseBranch links the commitment leaf to Parent.MerkleRoot.
	// BranchIndex gives the leaf position; bit i selects the side at
	// level i of the branch.
	CoinbaseBranch []chainhash.Hash
	BranchIndex    uint32

	// ChainID tags which auxiliary chain the proof was mined for.  It is
	// an explicit consensus-checked field: a proof produced for another
	// chain must not validate here even if the rest of it is sound.
	ChainID int32
}

// CommitmentLeaf returns the merkle leaf an external block must contain to
// vouch for the passed block hash.
func CommitmentLeaf(blockHash chainhash.Hash) chainhash.Hash {
	return chainhash.DoubleHashH(blockHash[:])
}

// BranchRoot folds the commitment leaf for blockHash through the coinbase
// branch and returns the resulting merkle root.  The proof is sound when the
// result equals Parent.MerkleRoot.
func (a *AuxPow) BranchRoot(blockHash chainhash.Hash) chainhash.Hash {
	return chainhash.MerkleBranchRoot(CommitmentLeaf(blockHash),
		a.CoinbaseBranch, a.BranchIndex)
}

// ProvesInclusion reports whether the branch links the commitment for
// blockHash to the parent header's merkle root.
func (a *AuxPow) ProvesInclusion(blockHash chainhash.Hash) bool {
	return a.BranchRoot(blockHash) == a.Parent.MerkleRoot
}

// Copy creates a deep copy of the aux pow.
func (a *AuxPow) Copy() *AuxPow {
	clone := *a
	clone.CoinbaseBranch = make([]chainhash.Hash, len(a.CoinbaseBranch))
	copy(clone.CoinbaseBranch, a.CoinbaseBranch)
	return &clone
}

func readAuxPow(r io.Reader, a *AuxPow) error {
	err := ReadElements(r, &a.Parent.Version, &a.Parent.PrevBlock,
		&a.Parent.MerkleRoot, (*Uint32Time)(&a.Parent.Timestamp),
		&a.Parent.Bits, &a.Parent.Nonce)
	if err != nil {
		return err
	}

	if a.CoinbaseBranch, err = readHashList(r); err != nil {
		return err
	}
	return ReadElements(r, &a.BranchIndex, &a.ChainID)
}

func writeAuxPow(w io.Writer, a *AuxPow) error {
	err := WriteElements(w, a.Parent.Version, &a.Parent.PrevBlock,
		&a.Parent.MerkleRoot, Uint32Time(a.Parent.Timestamp),
		a.Parent.Bits, a.Parent.Nonce)
	if err != nil {
		return err
	}

	if err = writeHashList(w, a.CoinbaseBranch); err != nil {
		return err
	}
	return WriteElements(w, a.BranchIndex, a.ChainID)
}
