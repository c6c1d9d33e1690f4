// Package rlp implements canonical Recursive-Length-Prefix encoding for the
// hash preimages the relay constructs. Only encoding is provided; the relay
// never needs to decode RLP.
package rlp

import (
	"math/big"
	"reflect"
)

// EncodeToBytes returns the canonical RLP encoding of val.
// Supported shapes: bool, uint8/16/32/64, *big.Int, []byte, [N]byte,
// string, and slices/arrays of supported shapes (encoded as lists).
// Negative big integers and any other shape fail with an encoding error.
func EncodeToBytes(val interface{}) ([]byte, error) {
	return encodeValue(reflect.ValueOf(val))
}

// EncodeList encodes the given items as a single RLP list.
func EncodeList(items ...interface{}) ([]byte, error) {
	var payload []byte
	for _, item := range items {
		enc, err := encodeValue(reflect.ValueOf(item))
		if err != nil {
			return nil, err
		}
		payload = append(payload, enc...)
	}
	return wrapList(payload), nil
}

func encodeValue(v reflect.Value) ([]byte, error) {
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr {
		if v.IsNil() {
			// nil pointer/interface encodes as the empty string.
			return []byte{0x80}, nil
		}
		v = v.Elem()
	}

	if v.Type() == reflect.TypeOf(big.Int{}) {
		bi := v.Addr().Interface().(*big.Int)
		return encodeBigInt(bi)
	}

	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return []byte{0x01}, nil
		}
		return []byte{0x80}, nil

	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uint:
		return encodeUint(v.Uint()), nil

	case reflect.String:
		return encodeString([]byte(v.String())), nil

	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			// []byte is an RLP string.
			return encodeString(v.Bytes()), nil
		}
		return encodeSeq(v)

	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			// [N]byte (addresses, hashes) is an RLP string.
			b := make([]byte, v.Len())
			for i := 0; i < v.Len(); i++ {
				b[i] = byte(v.Index(i).Uint())
			}
			return encodeString(b), nil
		}
		return encodeSeq(v)

	case reflect.Invalid:
		return []byte{0x80}, nil

	default:
		return nil, ErrUnsupportedType
	}
}

func encodeSeq(v reflect.Value) ([]byte, error) {
	var payload []byte
	for i := 0; i < v.Len(); i++ {
		enc, err := encodeValue(v.Index(i))
		if err != nil {
			return nil, err
		}
		payload = append(payload, enc...)
	}
	return wrapList(payload), nil
}

// encodeUint encodes u as the minimal big-endian byte string.
// Zero encodes as the empty string.
func encodeUint(u uint64) []byte {
	if u == 0 {
		return []byte{0x80}
	}
	if u < 128 {
		return []byte{byte(u)}
	}
	return encodeString(putUintBigEndian(u))
}

func encodeBigInt(i *big.Int) ([]byte, error) {
	if i.Sign() < 0 {
		return nil, ErrNegativeInteger
	}
	if i.Sign() == 0 {
		return []byte{0x80}, nil
	}
	b := i.Bytes() // big-endian, no leading zeros
	return encodeString(b), nil
}

func encodeString(data []byte) []byte {
	n := len(data)
	if n == 1 && data[0] <= 0x7f {
		return data
	}
	if n <= 55 {
		buf := make([]byte, 1+n)
		buf[0] = 0x80 + byte(n)
		copy(buf[1:], data)
		return buf
	}
	lenBytes := putUintBigEndian(uint64(n))
	buf := make([]byte, 1+len(lenBytes)+n)
	buf[0] = 0xb7 + byte(len(lenBytes))
	copy(buf[1:], lenBytes)
	copy(buf[1+len(lenBytes):], data)
	return buf
}

func wrapList(payload []byte) []byte {
	n := len(payload)
	if n <= 55 {
		buf := make([]byte, 1+n)
		buf[0] = 0xc0 + byte(n)
		copy(buf[1:], payload)
		return buf
	}
	lenBytes := putUintBigEndian(uint64(n))
	buf := make([]byte, 1+len(lenBytes)+n)
	buf[0] = 0xf7 + byte(len(lenBytes))
	copy(buf[1:], lenBytes)
	copy(buf[1+len(lenBytes):], payload)
	return buf
}

// putUintBigEndian encodes u big-endian with no leading zero bytes.
func putUintBigEndian(u uint64) []byte {
	n := 8
	for n > 1 && u>>(8*(n-1)) == 0 {
		n--
	}
	b := make([]byte, n)
	for i := 0; i < n; i++ {
		b[i] = byte(u >> (8 * (n - 1 - i)))
	}
	return b
}
