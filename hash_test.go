package stripemap

import (
	"testing"
)

type pointKey struct {
	X, Y int32
}

type namedInt int

func TestDefaultHasher_Deterministic(t *testing.T) {
	testDefaultHasher(t, "a", "b")
	testDefaultHasher(t, 1, 2)
	testDefaultHasher(t, int8(1), int8(2))
	testDefaultHasher(t, uint16(1), uint16(2))
	testDefaultHasher(t, int32(1), int32(2))
	testDefaultHasher(t, uint64(1), uint64(2))
	testDefaultHasher(t, uintptr(1), uintptr(2))
	testDefaultHasher(t, namedInt(1), namedInt(2))
	testDefaultHasher(t, pointKey{1, 2}, pointKey{2, 1})
}

func testDefaultHasher[K comparable](t *testing.T, a, b K) {
	t.Helper()
	h := DefaultHasher[K]()
	if h(a) != h(a) {
		t.Fatalf("hash of %v is not deterministic", a)
	}
	if h(a) == h(b) {
		t.Fatalf("hash of %v collides with %v", a, b)
	}
}

func TestHashString_MatchesHashBytes(t *testing.T) {
	for _, s := range []string{"", "a", "stripemap", "0123456789abcdef0123456789abcdef"} {
		if HashString(s) != HashBytes([]byte(s)) {
			t.Fatalf("string and byte hashes differ for %q", s)
		}
	}
}

func TestHashUint64_SpreadsLowBits(t *testing.T) {
	// Keys that differ only in high bits must not all land in one stripe.
	const stripes = 16
	seen := make(map[uint64]bool)
	for i := uint64(0); i < 64; i++ {
		seen[HashUint64(i<<32)&(stripes-1)] = true
	}
	if len(seen) < stripes/2 {
		t.Fatalf("high-bit keys only reached %d of %d stripes", len(seen), stripes)
	}
}
