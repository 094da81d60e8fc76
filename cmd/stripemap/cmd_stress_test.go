package main

import (
	"context"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestRunStress(t *testing.T) {
	log.SetLevel(log.WarnLevel)
	for _, multimap := range []bool{false, true} {
		stats, err := runStress(context.Background(), StressOptions{
			Workers:        4,
			Ops:            5_000,
			Keys:           1_000,
			BulkSize:       16,
			Stripes:        8,
			InitialBuckets: 2,
			MaxLoadFactor:  1,
			Multimap:       multimap,
			Seed:           42,
		})
		if err != nil {
			t.Fatalf("stress run failed: %v", err)
		}
		if stats.TotalRehashes == 0 {
			t.Fatalf("expected the table to grow from 2 buckets: %s", stats)
		}
	}
}

func TestRunStress_InvalidOptions(t *testing.T) {
	if _, err := runStress(context.Background(), StressOptions{Workers: 1, Keys: 1, BulkSize: 1, Stripes: 0, InitialBuckets: 1, MaxLoadFactor: 1}); err == nil {
		t.Fatal("zero stripes should be rejected")
	}
	if _, err := runStress(context.Background(), StressOptions{}); err == nil {
		t.Fatal("empty options should be rejected")
	}
}

func TestRunStress_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := runStress(ctx, StressOptions{
		Workers: 2, Ops: 10_000, Keys: 100, BulkSize: 4,
		Stripes: 4, InitialBuckets: 4, MaxLoadFactor: 1, Seed: 1,
	})
	if err != context.Canceled {
		t.Fatalf("context.Canceled was expected, got: %v", err)
	}
}
