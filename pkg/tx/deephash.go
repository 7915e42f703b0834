package tx

import (
	"crypto/sha512"
	"strconv"
)

// The network's signature digest is a deep hash: a tagged SHA-384
// chain over a nested list of byte strings, stable regardless of any
// particular serialization of the envelope.

type deepHashItem struct {
	blob []byte
	list []deepHashItem
}

func blobItem(b []byte) deepHashItem {
	return deepHashItem{blob: b}
}

func listItem(items ...deepHashItem) deepHashItem {
	return deepHashItem{list: items, blob: nil}
}

func deepHash(item deepHashItem) [sha512.Size384]byte {
	if item.list == nil {
		tag := append([]byte("blob"), []byte(strconv.Itoa(len(item.blob)))...)

		tagHash := sha512.Sum384(tag)
		blobHash := sha512.Sum384(item.blob)

		return sha512.Sum384(append(tagHash[:], blobHash[:]...))
	}

	tag := append([]byte("list"), []byte(strconv.Itoa(len(item.list)))...)
	acc := sha512.Sum384(tag)

	for _, child := range item.list {
		ch := deepHash(child)
		acc = sha512.Sum384(append(acc[:], ch[:]...))
	}

	return acc
}

// SignatureData assembles the digest input the Signer signs. Field
// order is fixed by the network; changing it breaks verification
// against every other client.
func (t *Transaction) SignatureData() []byte {
	tags := make([]deepHashItem, 0, len(t.Tags))
	for _, tag := range t.Tags {
		tags = append(tags, listItem(blobItem(tag.Name), blobItem(tag.Value)))
	}

	item := listItem(
		blobItem([]byte(strconv.Itoa(t.Format))),
		blobItem(t.Owner),
		blobItem(t.Target),
		blobItem([]byte(t.Quantity.String())),
		blobItem([]byte(t.Reward.String())),
		blobItem(t.LastTx),
		deepHashItem{list: tags},
		blobItem([]byte(t.DataSize.String())),
		blobItem(t.DataRoot),
	)

	h := deepHash(item)

	return h[:]
}
