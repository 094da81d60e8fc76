package stripemap

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/google/btree"
)

type modelEntry struct {
	key, value int
}

func modelLess(a, b modelEntry) bool {
	return a.key < b.key
}

// TestTableAgainstModel runs random operations against a table and an
// ordered reference map and compares their contents after every batch.
func TestTableAgainstModel(t *testing.T) {
	const numOps = 20_000
	const keySpace = 512
	r := rand.New(rand.NewPCG(1, 2))
	m := MustNew[int, int](spreadIntHash, intEqual, WithInitialBuckets(2), WithStripes(4), WithMaxLoadFactor(0.75))
	ref := btree.NewG[modelEntry](16, modelLess)

	for op := 0; op < numOps; op++ {
		k, v := r.IntN(keySpace), r.Int()
		switch r.IntN(8) {
		case 0, 1:
			_, existed := ref.ReplaceOrInsert(modelEntry{k, v})
			if inserted := m.InsertUnique(k, v); inserted == existed {
				t.Fatalf("op %d: InsertUnique(%d) reported inserted=%v", op, k, inserted)
			}
		case 2:
			_, existed := ref.Delete(modelEntry{key: k})
			if erased := m.EraseFirst(k); erased != existed {
				t.Fatalf("op %d: EraseFirst(%d) reported %v", op, k, erased)
			}
		case 3:
			want, existed := ref.Get(modelEntry{key: k})
			got, ok := m.GetValue(k)
			if ok != existed || ok && got != want.value {
				t.Fatalf("op %d: GetValue(%d) = %v, %v; want %v, %v", op, k, got, ok, want.value, existed)
			}
		case 4:
			_, existed := ref.Get(modelEntry{key: k})
			if existed {
				ref.ReplaceOrInsert(modelEntry{k, v})
			}
			if set := m.SetValueFirst(k, v); set != existed {
				t.Fatalf("op %d: SetValueFirst(%d) reported %v", op, k, set)
			}
		case 5:
			entries := make([]Entry[int, int], r.IntN(32))
			for i := range entries {
				entries[i] = Entry[int, int]{Key: r.IntN(keySpace), Value: r.Int()}
				ref.ReplaceOrInsert(modelEntry{entries[i].Key, entries[i].Value})
			}
			m.InsertBulkUnique(entries)
		case 6:
			keys := make([]int, r.IntN(32))
			for i := range keys {
				keys[i] = r.IntN(keySpace)
				ref.Delete(modelEntry{key: keys[i]})
			}
			m.EraseBulkAll(keys)
		case 7:
			_, existed := ref.Get(modelEntry{key: k})
			if !existed {
				ref.ReplaceOrInsert(modelEntry{k, 0})
			}
			m.SetComputedValueFirst(k, func(_ int, value *int) bool {
				return true
			})
		}
		if op%1000 == 999 {
			assertMatchesModel(t, m, ref)
		}
	}
	assertMatchesModel(t, m, ref)
	assertTableInvariants(t, m)
}

func assertMatchesModel(t *testing.T, m *Table[int, int], ref *btree.BTreeG[modelEntry]) {
	t.Helper()
	if m.Size() != ref.Len() {
		t.Fatalf("size %d does not match reference size %d", m.Size(), ref.Len())
	}
	var got []modelEntry
	m.VisitAllReadOnly(func(k, v int) bool {
		got = append(got, modelEntry{k, v})
		return true
	})
	slices.SortFunc(got, func(a, b modelEntry) int { return a.key - b.key })
	i := 0
	ref.Ascend(func(want modelEntry) bool {
		if got[i] != want {
			t.Fatalf("entry %d is %v, reference has %v", i, got[i], want)
		}
		i++
		return true
	})
}
