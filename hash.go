package stripemap

import (
	"hash/maphash"
	"unsafe"

	"github.com/cespare/xxhash/v2"
)

// hashPrime is the 64-bit Golden Ratio mixing constant.
const hashPrime = 0x9E3779B185EBCA87

// HashString hashes s with xxHash64.
func HashString(s string) uint64 {
	return xxhash.Sum64String(s)
}

// HashBytes hashes b with xxHash64.
func HashBytes(b []byte) uint64 {
	return xxhash.Sum64(b)
}

// HashUint64 mixes v so that its high bits reach the low bits used for
// bucket and stripe selection.
func HashUint64(v uint64) uint64 {
	v ^= v >> 33
	v *= hashPrime
	v ^= v >> 29
	return v
}

// DefaultHasher returns a hash function for K. Strings use xxHash64,
// integer kinds use HashUint64, and any other comparable type is hashed
// with hash/maphash under a per-call random seed.
func DefaultHasher[K comparable]() func(K) uint64 {
	switch any(*new(K)).(type) {
	case string:
		return func(k K) uint64 {
			return xxhash.Sum64String(*(*string)(unsafe.Pointer(&k)))
		}
	case int, uint, uintptr:
		return func(k K) uint64 {
			return HashUint64(uint64(*(*uint)(unsafe.Pointer(&k))))
		}
	case int64, uint64:
		return func(k K) uint64 {
			return HashUint64(*(*uint64)(unsafe.Pointer(&k)))
		}
	case int32, uint32:
		return func(k K) uint64 {
			return HashUint64(uint64(*(*uint32)(unsafe.Pointer(&k))))
		}
	case int16, uint16:
		return func(k K) uint64 {
			return HashUint64(uint64(*(*uint16)(unsafe.Pointer(&k))))
		}
	case int8, uint8:
		return func(k K) uint64 {
			return HashUint64(uint64(*(*uint8)(unsafe.Pointer(&k))))
		}
	default:
		seed := maphash.MakeSeed()
		return func(k K) uint64 {
			return maphash.Comparable(seed, k)
		}
	}
}

func defaultEqual[K comparable](a, b K) bool {
	return a == b
}
