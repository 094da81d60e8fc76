package stripemap

import (
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/alphadose/haxmap"
	"github.com/cornelk/hashmap"
)

const benchmarkItemCount = 1024

var (
	benchData      [128]string
	benchDataLarge [128 << 10]string
)

func init() {
	for i := range benchData {
		benchData[i] = strconv.Itoa(i)
	}
	for i := range benchDataLarge {
		benchDataLarge[i] = strconv.Itoa(i)
	}
}

func BenchmarkTableGetValue(b *testing.B) {
	benchmarkTableGetValue(b, benchData[:])
}

func BenchmarkTableGetValueLarge(b *testing.B) {
	benchmarkTableGetValue(b, benchDataLarge[:])
}

func benchmarkTableGetValue(b *testing.B, data []string) {
	b.ReportAllocs()
	m := MustNew[string, int](HashString, func(a, b string) bool { return a == b })
	for i := range data {
		m.InsertUnique(data[i], i)
	}
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _ = m.GetValue(data[i])
			i++
			if i >= len(data) {
				i = 0
			}
		}
	})
}

func BenchmarkTableInsertUnique(b *testing.B) {
	benchmarkTableInsertUnique(b, benchData[:])
}

func BenchmarkTableInsertUniqueLarge(b *testing.B) {
	benchmarkTableInsertUnique(b, benchDataLarge[:])
}

func benchmarkTableInsertUnique(b *testing.B, data []string) {
	b.ReportAllocs()
	m := MustNew[string, int](HashString, func(a, b string) bool { return a == b })
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			m.InsertUnique(data[i], i)
			i++
			if i >= len(data) {
				i = 0
			}
		}
	})
}

func BenchmarkTableInsertBulkUnique(b *testing.B) {
	b.ReportAllocs()
	entries := make([]Entry[string, int], len(benchDataLarge))
	for i := range entries {
		entries[i] = Entry[string, int]{Key: benchDataLarge[i], Value: i}
	}
	for i := 0; i < b.N; i++ {
		m := MustNew[string, int](HashString, func(a, b string) bool { return a == b })
		m.InsertBulkUnique(entries)
	}
}

func BenchmarkTableInsertUniqueLoop(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		m := MustNew[string, int](HashString, func(a, b string) bool { return a == b })
		for j := range benchDataLarge {
			m.InsertUnique(benchDataLarge[j], j)
		}
	}
}

// The benchmarks below compare read-heavy parallel access with other
// concurrent maps keyed by uintptr.

func hashUintptr(k uintptr) uint64 {
	return HashUint64(uint64(k))
}

func BenchmarkCompareTable_Get(b *testing.B) {
	m := MustNew[uintptr, uintptr](hashUintptr, func(a, b uintptr) bool { return a == b })
	for i := uintptr(0); i < benchmarkItemCount; i++ {
		m.InsertUnique(i, i)
	}
	var count atomic.Uintptr
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			k := (count.Add(1) - 1) % benchmarkItemCount
			if v, ok := m.GetValue(k); !ok || v != k {
				b.Fail()
			}
		}
	})
}

func BenchmarkCompareHaxMap_Get(b *testing.B) {
	m := haxmap.New[uintptr, uintptr]()
	for i := uintptr(0); i < benchmarkItemCount; i++ {
		m.Set(i, i)
	}
	var count atomic.Uintptr
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			k := (count.Add(1) - 1) % benchmarkItemCount
			if v, ok := m.Get(k); !ok || v != k {
				b.Fail()
			}
		}
	})
}

func BenchmarkCompareHashMap_Get(b *testing.B) {
	m := hashmap.New[uintptr, uintptr]()
	for i := uintptr(0); i < benchmarkItemCount; i++ {
		m.Set(i, i)
	}
	var count atomic.Uintptr
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			k := (count.Add(1) - 1) % benchmarkItemCount
			if v, ok := m.Get(k); !ok || v != k {
				b.Fail()
			}
		}
	})
}

func BenchmarkCompareTable_Set(b *testing.B) {
	m := MustNew[uintptr, uintptr](hashUintptr, func(a, b uintptr) bool { return a == b })
	var count atomic.Uintptr
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			k := (count.Add(1) - 1) % benchmarkItemCount
			m.InsertUnique(k, k)
		}
	})
}

func BenchmarkCompareHaxMap_Set(b *testing.B) {
	m := haxmap.New[uintptr, uintptr]()
	var count atomic.Uintptr
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			k := (count.Add(1) - 1) % benchmarkItemCount
			m.Set(k, k)
		}
	})
}

func BenchmarkCompareHashMap_Set(b *testing.B) {
	m := hashmap.New[uintptr, uintptr]()
	var count atomic.Uintptr
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			k := (count.Add(1) - 1) % benchmarkItemCount
			m.Set(k, k)
		}
	})
}
