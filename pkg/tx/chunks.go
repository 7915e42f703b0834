package tx

import (
	"bytes"
	"crypto/sha256"

	"github.com/pkg/errors"
)

// MaxChunkSize is the largest payload slice posted in one chunk.
const MaxChunkSize = 256 * 1024

const hashSize = sha256.Size

// chunkRef records where chunk i lives in the payload and its merkle
// path to the data root.
type chunkRef struct {
	offset int
	size   int
	path   Base64
}

// buildChunks slices data into ≤MaxChunkSize pieces, hashes each leaf
// and folds the leaves into a merkle root, recording the sibling path
// for every leaf. Odd nodes are paired with themselves.
func buildChunks(data []byte) (Base64, []chunkRef, error) {
	if len(data) == 0 {
		return nil, nil, errors.New("no data to chunk")
	}

	refs := make([]chunkRef, 0, (len(data)+MaxChunkSize-1)/MaxChunkSize)
	leaves := make([][]byte, 0, cap(refs))

	for off := 0; off < len(data); off += MaxChunkSize {
		size := MaxChunkSize
		if off+size > len(data) {
			size = len(data) - off
		}

		h := sha256.Sum256(data[off : off+size])
		leaves = append(leaves, h[:])
		refs = append(refs, chunkRef{offset: off, size: size})
	}

	root, paths := foldTree(leaves)

	for i := range refs {
		refs[i].path = paths[i]
	}

	return root, refs, nil
}

// foldTree builds the tree bottom-up and returns the root plus each
// leaf's path. A path is a leaf-first run of (direction, sibling hash)
// entries; direction 0 means the sibling sits on the left.
func foldTree(leaves [][]byte) (Base64, []Base64) {
	paths := make([]Base64, len(leaves))

	// index of the tree node each original leaf currently lives under
	at := make([]int, len(leaves))
	for i := range at {
		at[i] = i
	}

	level := leaves

	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)

		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left
			if i+1 < len(level) {
				right = level[i+1]
			}

			h := sha256.Sum256(append(append([]byte{}, left...), right...))
			next = append(next, h[:])
		}

		for l := range at {
			n := at[l]
			var dir byte
			var sibling []byte

			if n%2 == 0 {
				sibling = level[n]
				if n+1 < len(level) {
					sibling = level[n+1]
				}
				dir = 1 // sibling on the right
			} else {
				sibling = level[n-1]
				dir = 0
			}

			paths[l] = append(paths[l], dir)
			paths[l] = append(paths[l], sibling...)
			at[l] = n / 2
		}

		level = next
	}

	return Base64(level[0]), paths
}

// ValidatePath replays a chunk's merkle path against the data root.
// The builder guarantees validity; this exists for tests and for
// callers that want to re-check third-party chunks.
func ValidatePath(root Base64, chunkData []byte, path Base64) error {
	if len(path)%(1+hashSize) != 0 {
		return errors.New("malformed data path")
	}

	h := sha256.Sum256(chunkData)
	acc := h[:]

	for p := path; len(p) > 0; p = p[1+hashSize:] {
		dir := p[0]
		sibling := p[1 : 1+hashSize]

		var joined []byte
		if dir == 1 {
			joined = append(append([]byte{}, acc...), sibling...)
		} else {
			joined = append(append([]byte{}, sibling...), acc...)
		}

		hh := sha256.Sum256(joined)
		acc = hh[:]
	}

	if !bytes.Equal(acc, root) {
		return errors.New("data path does not reach root")
	}

	return nil
}
