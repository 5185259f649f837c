package blockstore

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// encode serializes v using a stable, tagged, self-describing binary
// encoding with map-style structs and short field names: field names
// are struct tag keys, not positional array slots, so a future field
// can be added or removed without invalidating old blobs. A plain
// []byte is the one exception: it is returned verbatim, so a Direct
// block's blob is exactly its raw data.
func encode(v any) ([]byte, error) {
	if raw, ok := v.([]byte); ok {
		return raw, nil
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseArrayEncodedStructs(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("%w: encode: %v", ErrCodec, err)
	}
	return buf.Bytes(), nil
}

// decode deserializes data into v, tolerating unknown fields (a blob
// written by a newer schema still decodes into an older struct) and
// missing optional fields, which simply keep their Go zero value. A
// *[]byte target receives a copy of data verbatim, mirroring encode.
func decode(data []byte, v any) error {
	if raw, ok := v.(*[]byte); ok {
		*raw = append([]byte(nil), data...)
		return nil
	}
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseArrayEncodedStructs(false)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrCodec, err)
	}
	return nil
}

// EncodeValue serializes value with the package's tagged binary codec.
// It is exported for callers outside the bucket graph — notably the
// root store, which persists a Directory by raw bytes rather than
// through a Stored handle.
func EncodeValue[T any](value T) ([]byte, error) {
	return encode(value)
}

// DecodeValue deserializes data as a T using the package's tagged
// binary codec, the counterpart to EncodeValue.
func DecodeValue[T any](data []byte) (T, error) {
	var value T
	err := decode(data, &value)
	return value, err
}
