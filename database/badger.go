// Copyright (c) 2024 The Dyad developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package database

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/dgraph-io/badger"
	"github.com/pkg/errors"

	"gitlab.com/dyadchain/dyadd/types/chainhash"
	"gitlab.com/dyadchain/dyadd/types/wire"
)

// Key layout.  Block node keys sort by height so that iteration yields
// parents before children.
//
//   'b' | height (4 bytes, big endian) | block hash (32 bytes)  -> header || status
//   't'                                                         -> best tip hash
var (
	blockNodePrefix = []byte{'b'}
	bestTipKey      = []byte{'t'}
)

// BadgerStore is a BlockStore backed by a badger key-value database.
type BadgerStore struct {
	db *badger.DB

	// tmpDir is set for throwaway stores; it is removed on Close.
	tmpDir string
}

// OpenBadgerStore opens (creating if needed) a block store in the passed
// directory.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "open block store")
	}
	return &BadgerStore{db: db}, nil
}

// OpenMemoryStore opens a throwaway block store backed by a temporary
// directory that is removed when the store is closed.  It is used by the
// regression network and by tests.
func OpenMemoryStore() (*BadgerStore, error) {
	dir, err := os.MkdirTemp("", "dyadd-blockstore")
	if err != nil {
		return nil, errors.Wrap(err, "create block store directory")
	}

	store, err := OpenBadgerStore(dir)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	store.tmpDir = dir
	return store, nil
}

// Close shuts the underlying database down.
func (s *BadgerStore) Close() error {
	err := s.db.Close()
	if s.tmpDir != "" {
		if rmErr := os.RemoveAll(s.tmpDir); err == nil {
			err = rmErr
		}
	}
	return err
}

func blockNodeKey(header *wire.BlockHeader) []byte {
	hash := header.BlockHash()
	key := make([]byte, 1+4+chainhash.HashSize)
	copy(key, blockNodePrefix)
	binary.BigEndian.PutUint32(key[1:], uint32(header.Height))
	copy(key[5:], hash[:])
	return key
}

func serializeBlockNode(rec BlockNodeRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := rec.Header.Write(&buf); err != nil {
		return nil, err
	}
	buf.WriteByte(rec.Status)
	return buf.Bytes(), nil
}

func deserializeBlockNode(data []byte) (BlockNodeRecord, error) {
	if len(data) < 1 {
		return BlockNodeRecord{}, errors.New("short block node record")
	}

	header := new(wire.BlockHeader)
	if err := header.Read(bytes.NewReader(data[:len(data)-1])); err != nil {
		return BlockNodeRecord{}, errors.Wrap(err, "decode stored header")
	}
	return BlockNodeRecord{Header: header, Status: data[len(data)-1]}, nil
}

// PutBlockNodes writes the passed records in one transaction.
func (s *BadgerStore) PutBlockNodes(records []BlockNodeRecord) error {
	if len(records) == 0 {
		return nil
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for _, rec := range records {
			data, err := serializeBlockNode(rec)
			if err != nil {
				return err
			}
			if err := txn.Set(blockNodeKey(rec.Header), data); err != nil {
				return errors.Wrap(err, "store block node")
			}
		}
		return nil
	})
}

// PutBestTip records the hash of the current best chain tip.
func (s *BadgerStore) PutBestTip(hash chainhash.Hash) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(bestTipKey, hash.CloneBytes())
	})
}

// BestTip returns the recorded best tip hash, or false when none was stored
// yet.
func (s *BadgerStore) BestTip() (chainhash.Hash, bool, error) {
	var hash chainhash.Hash
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(bestTipKey)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			if err := hash.SetBytes(val); err != nil {
				return err
			}
			found = true
			return nil
		})
	})
	return hash, found, err
}

// ForEachBlockNode invokes fn for every stored record in ascending height
// order.
func (s *BadgerStore) ForEachBlockNode(fn func(BlockNodeRecord) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = blockNodePrefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				rec, err := deserializeBlockNode(val)
				if err != nil {
					return err
				}
				return fn(rec)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}
