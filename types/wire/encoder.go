// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wire defines the block header and proof of work payloads together
// with their serialization.
package wire

import (
	"encoding/binary"
	"io"
	"time"

	"github.com/pkg/errors"

	"gitlab.com/dyadchain/dyadd/types/chainhash"
)

var littleEndian = binary.LittleEndian

// MaxBranchLen bounds the number of hashes in a merkle branch.  A tree with
// 2^32 leaves needs 32 levels; anything longer is malformed.
const MaxBranchLen = 32

// Uint32Time signals that a time.Time element is encoded as a uint32 unix
// timestamp on the wire.
type Uint32Time time.Time

// ReadElement reads the next sequence of bytes from r using little endian
// depending on the concrete type of element pointed to.
func ReadElement(r io.Reader, element interface{}) error {
	var buf [8]byte

	switch e := element.(type) {
	case *uint8:
		if _, err := io.ReadFull(r, buf[:1]); err != nil {
			return err
		}
		*e = buf[0]
		return nil

	case *int32:
		if _, err := io.ReadFull(r, buf[:4]); err != nil {
			return err
		}
		*e = int32(littleEndian.Uint32(buf[:4]))
		return nil

	case *uint32:
		if _, err := io.ReadFull(r, buf[:4]); err != nil {
			return err
		}
		*e = littleEndian.Uint32(buf[:4])
		return nil

	case *uint64:
		if _, err := io.ReadFull(r, buf[:8]); err != nil {
			return err
		}
		*e = littleEndian.Uint64(buf[:8])
		return nil

	case *Uint32Time:
		if _, err := io.ReadFull(r, buf[:4]); err != nil {
			return err
		}
		*e = Uint32Time(time.Unix(int64(littleEndian.Uint32(buf[:4])), 0))
		return nil

	case *chainhash.Hash:
		_, err := io.ReadFull(r, e[:])
		return err
	}

	return errors.Errorf("unhandled element type %T", element)
}

// ReadElements reads multiple items from r.  It is equivalent to multiple
// calls to ReadElement.
func ReadElements(r io.Reader, elements ...interface{}) error {
	for _, element := range elements {
		if err := ReadElement(r, element); err != nil {
			return err
		}
	}
	return nil
}

// WriteElement writes the little endian representation of element to w.
func WriteElement(w io.Writer, element interface{}) error {
	var buf [8]byte

	switch e := element.(type) {
	case uint8:
		buf[0] = e
		_, err := w.Write(buf[:1])
		return err

	case int32:
		littleEndian.PutUint32(buf[:4], uint32(e))
		_, err := w.Write(buf[:4])
		return err

	case uint32:
		littleEndian.PutUint32(buf[:4], e)
		_, err := w.Write(buf[:4])
		return err

	case uint64:
		littleEndian.PutUint64(buf[:8], e)
		_, err := w.Write(buf[:8])
		return err

	case Uint32Time:
		littleEndian.PutUint32(buf[:4], uint32(time.Time(e).Unix()))
		_, err := w.Write(buf[:4])
		return err

	case *chainhash.Hash:
		_, err := w.Write(e[:])
		return err
	}

	return errors.Errorf("unhandled element type %T", element)
}

// WriteElements writes multiple items to w.  It is equivalent to multiple
// calls to WriteElement.
func WriteElements(w io.Writer, elements ...interface{}) error {
	for _, element := range elements {
		if err := WriteElement(w, element); err != nil {
			return err
		}
	}
	return nil
}

// readHashList reads a uint8-prefixed list of hashes, used for merkle
// branches.
func readHashList(r io.Reader) ([]chainhash.Hash, error) {
	var count uint8
	if err := ReadElement(r, &count); err != nil {
		return nil, err
	}
	if count > MaxBranchLen {
		return nil, errors.Errorf("merkle branch of %d hashes exceeds max of %d",
			count, MaxBranchLen)
	}

	hashes := make([]chainhash.Hash, count)
	for i := range hashes {
		if err := ReadElement(r, &hashes[i]); err != nil {
			return nil, err
		}
	}
	return hashes, nil
}

// writeHashList writes a uint8-prefixed list of hashes.
func writeHashList(w io.Writer, hashes []chainhash.Hash) error {
	if len(hashes) > MaxBranchLen {
		return errors.Errorf("merkle branch of %d hashes exceeds max of %d",
			len(hashes), MaxBranchLen)
	}
	if err := WriteElement(w, uint8(len(hashes))); err != nil {
		return err
	}
	for i := range hashes {
		if err := WriteElement(w, &hashes[i]); err != nil {
			return err
		}
	}
	return nil
}
