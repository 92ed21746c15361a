package ledger

import (
	"github.com/fxamacker/cbor/v2"
)

// CBOR major types, read from the top three bits of an item's first byte.
const (
	majorUint  = 0
	majorBytes = 2
	majorArray = 4
	majorMap   = 5
	majorTag   = 6
)

// tagEncodedCBOR marks a byte string that itself holds CBOR (RFC 8949 §3.4.5.1).
const tagEncodedCBOR = 24

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{
		MaxNestedLevels:  64,
		MaxArrayElements: 65536,
		MaxMapPairs:      65536,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

func majorType(raw []byte) int {
	if len(raw) == 0 {
		return -1
	}
	return int(raw[0] >> 5)
}

// unwrapEncoded strips a tag-24 wrapper if present and returns the inner bytes.
func unwrapEncoded(raw []byte) ([]byte, error) {
	if majorType(raw) != majorTag {
		return raw, nil
	}
	var tag cbor.RawTag
	if err := decMode.Unmarshal(raw, &tag); err != nil {
		return nil, err
	}
	if tag.Number != tagEncodedCBOR {
		return raw, nil
	}
	var inner []byte
	if err := decMode.Unmarshal(tag.Content, &inner); err != nil {
		return nil, err
	}
	return inner, nil
}

func wrapEncoded(inner []byte) cbor.Tag {
	return cbor.Tag{Number: tagEncodedCBOR, Content: inner}
}
