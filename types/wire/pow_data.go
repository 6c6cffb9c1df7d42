// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"io"

	"github.com/pkg/errors"

	"gitlab.com/dyadchain/dyadd/types/chainhash"
	"gitlab.com/dyadchain/dyadd/types/pow"
)

// PowData bundles everything proof of work related of one block header: the
// algorithm tag, the difficulty bits, and exactly one proof payload.  The
// merge-mined flag of the algorithm byte selects which payload is present on
// the wire: a fake header for standalone blocks, an aux pow for merge-mined
// ones.
type PowData struct {
	// Algo is the algorithm byte including the merge-mined flag bit.
	Algo pow.PowAlgo

	// Bits is the compact difficulty target the proof must meet.
	Bits uint32

	FakeHeader *FakeHeader
	AuxPow     *AuxPow
}

// CoreAlgo returns the algorithm id without the merge-mined flag.
func (p *PowData) CoreAlgo() pow.PowAlgo {
	return p.Algo.Core()
}

// MergeMined reports whether the merge-mined flag is set on the algorithm
// byte.  Whether the matching payload is actually present is a validation
// concern, not a property of the flag.
func (p *PowData) MergeMined() bool {
	return p.Algo.MergeMined()
}

// PowHash returns the value that is compared against the difficulty target:
// the algorithm hash of the fake header for standalone proofs, or the parent
// header's sha256d hash for merge-mined ones.
func (p *PowData) PowHash() (chainhash.Hash, error) {
	if p.MergeMined() {
		if p.AuxPow == nil {
			return chainhash.Hash{}, errors.New("merge-mined pow data carries no aux pow")
		}
		return p.AuxPow.Parent.BlockHash(), nil
	}

	if p.FakeHeader == nil {
		return chainhash.Hash{}, errors.New("standalone pow data carries no fake header")
	}
	return p.FakeHeader.PowHash(p.CoreAlgo())
}

// Copy creates a deep copy of the pow data.
func (p *PowData) Copy() PowData {
	clone := *p
	if p.FakeHeader != nil {
		clone.FakeHeader = p.FakeHeader.Copy()
	}
	if p.AuxPow != nil {
		clone.AuxPow = p.AuxPow.Copy()
	}
	return clone
}

// ReadPowData decodes pow data from r.  The payload decoded after the fixed
// fields is chosen by the merge-mined flag of the algorithm byte.
func ReadPowData(r io.Reader, p *PowData) error {
	var algoByte uint8
	if err := ReadElements(r, &algoByte, &p.Bits); err != nil {
		return err
	}
	p.Algo = pow.PowAlgo(algoByte)

	if p.MergeMined() {
		p.FakeHeader = nil
		p.AuxPow = new(AuxPow)
		return readAuxPow(r, p.AuxPow)
	}

	p.AuxPow = nil
	p.FakeHeader = new(FakeHeader)
	return readFakeHeader(r, p.FakeHeader)
}

// WritePowData encodes pow data to w.
func WritePowData(w io.Writer, p *PowData) error {
	if err := WriteElements(w, uint8(p.Algo), p.Bits); err != nil {
		return err
	}

	if p.MergeMined() {
		if p.AuxPow == nil {
			return errors.New("merge-mined pow data carries no aux pow")
		}
		return writeAuxPow(w, p.AuxPow)
	}

	if p.FakeHeader == nil {
		return errors.New("standalone pow data carries no fake header")
	}
	return writeFakeHeader(w, p.FakeHeader)
}
