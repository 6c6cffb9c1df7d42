/*
 * Copyright (c) 2024 The Dyad developers
 * Use of this source code is governed by an ISC
 * license that can be found in the LICENSE file.
 */

package chainhash

// HashMerkleBranches takes two hashes, treated as the left and right tree
// nodes, and returns the hash of their concatenation.  This is a helper
// function used to aid in the generation of a merkle tree.
func HashMerkleBranches(left, right *Hash) *Hash {
	// Concatenate the left and right nodes.
	var hash [HashSize * 2]byte
	copy(hash[:HashSize], left[:])
	copy(hash[HashSize:], right[:])

	newHash := DoubleHashH(hash[:])
	return &newHash
}

// MerkleTreeRoot computes the root of the merkle tree built from the passed
// leaves.  An odd node at any level is paired with itself, as in bitcoin's
// transaction merkle tree.
func MerkleTreeRoot(leaves []Hash) Hash {
	if len(leaves) == 0 {
		return ZeroHash
	}

	level := make([]Hash, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}

		next := make([]Hash, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next[i/2] = *HashMerkleBranches(&level[i], &level[i+1])
		}
		level = next
	}

	return level[0]
}

// BuildMerkleTreeProof returns the inclusion proof for the first leaf of the
// merkle tree built from the passed leaves.  The proof contains one sibling
// hash per tree level, ordered bottom-up, and is empty for a single-leaf tree.
func BuildMerkleTreeProof(leaves []Hash) []Hash {
	proof := make([]Hash, 0, 8)
	if len(leaves) < 2 {
		return proof
	}

	level := make([]Hash, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		if len(level)%2 != 0 {
			level = append(level, level[len(level)-1])
		}

		proof = append(proof, level[1])

		next := make([]Hash, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next[i/2] = *HashMerkleBranches(&level[i], &level[i+1])
		}
		level = next
	}

	return proof
}

// ValidateMerkleTreeProof checks that the passed proof links the first-leaf
// position to the expected merkle tree root.
func ValidateMerkleTreeProof(leaf Hash, proof []Hash, root Hash) bool {
	return MerkleBranchRoot(leaf, proof, 0) == root
}

// MerkleBranchRoot folds the leaf at the given tree index up through the
// passed sibling branch and returns the resulting root.  Bit i of index
// selects the side of the leaf's ancestor at level i: a zero bit means the
// ancestor is the left child.
func MerkleBranchRoot(leaf Hash, branch []Hash, index uint32) Hash {
	current := leaf
	for _, sibling := range branch {
		sibling := sibling
		if index&1 == 0 {
			current = *HashMerkleBranches(&current, &sibling)
		} else {
			current = *HashMerkleBranches(&sibling, &current)
		}
		index >>= 1
	}
	return current
}
