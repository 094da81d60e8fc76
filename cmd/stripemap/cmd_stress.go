package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/llxisdsh/stripemap"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var cmdStress = &cobra.Command{
	Use:   "stress",
	Short: "Run a concurrent workload against a table",
	Long: `
The "stress" command starts a number of workers that insert, look up, erase
and bulk-modify keys of one shared table, then checks the table's bookkeeping
and prints its statistics.

EXIT STATUS
===========

Exit status is 0 if the command was successful, and non-zero if there was any error.
`,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := runStress(cmd.Context(), stressOptions)
		if err != nil {
			return err
		}
		fmt.Print(stats.String())
		return nil
	},
}

// StressOptions bundles all options for the stress command.
type StressOptions struct {
	Workers        int
	Ops            int
	Keys           int
	BulkSize       int
	Stripes        int
	InitialBuckets int
	MaxLoadFactor  float32
	Multimap       bool
	Seed           uint64
}

var stressOptions StressOptions

func init() {
	cmdRoot.AddCommand(cmdStress)

	f := cmdStress.Flags()
	f.IntVar(&stressOptions.Workers, "workers", 8, "number of concurrent workers")
	f.IntVar(&stressOptions.Ops, "ops", 100_000, "operations per worker")
	f.IntVar(&stressOptions.Keys, "keys", 10_000, "size of the key space")
	f.IntVar(&stressOptions.BulkSize, "bulk-size", 64, "items per bulk operation")
	f.IntVar(&stressOptions.Stripes, "stripes", 64, "number of stripe locks")
	f.IntVar(&stressOptions.InitialBuckets, "buckets", 16, "initial number of buckets")
	f.Float32Var(&stressOptions.MaxLoadFactor, "max-load-factor", 1.0, "load factor that triggers a rehash")
	f.BoolVar(&stressOptions.Multimap, "multimap", false, "insert duplicate keys instead of replacing values")
	f.Uint64Var(&stressOptions.Seed, "seed", 0, "random seed, 0 picks one from the clock")
}

func runStress(ctx context.Context, opts StressOptions) (*stripemap.TableStats, error) {
	if opts.Workers <= 0 || opts.Keys <= 0 || opts.BulkSize <= 0 {
		return nil, errors.Errorf("workers, keys and bulk-size must be positive")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	table, err := stripemap.New[int, int](
		func(k int) uint64 { return stripemap.HashUint64(uint64(k)) },
		func(a, b int) bool { return a == b },
		stripemap.WithStripes(opts.Stripes),
		stripemap.WithInitialBuckets(opts.InitialBuckets),
		stripemap.WithMaxLoadFactor(opts.MaxLoadFactor),
		stripemap.WithLogger(log.StandardLogger()),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create table")
	}

	log.WithFields(log.Fields{
		"workers": opts.Workers,
		"ops":     opts.Ops,
		"keys":    opts.Keys,
		"stripes": table.NumStripes(),
		"seed":    seed,
	}).Info("starting stress run")

	start := time.Now()
	wg, wgCtx := errgroup.WithContext(ctx)
	for w := 0; w < opts.Workers; w++ {
		r := rand.New(rand.NewPCG(seed, uint64(w)))
		wg.Go(func() error {
			return stressWorker(wgCtx, table, r, opts)
		})
	}
	if err := wg.Wait(); err != nil {
		return nil, err
	}

	stats := table.Stats()
	if stats.Size != stats.Counter {
		return stats, errors.Errorf("element counter %d does not match bucket sizes %d", stats.Counter, stats.Size)
	}
	if stats.Buckets&(stats.Buckets-1) != 0 || stats.Buckets < stats.Stripes {
		return stats, errors.Errorf("invalid bucket count %d for %d stripes", stats.Buckets, stats.Stripes)
	}
	log.WithFields(log.Fields{
		"elements": stats.Size,
		"buckets":  stats.Buckets,
		"rehashes": stats.TotalRehashes,
		"duration": time.Since(start),
	}).Info("stress run finished")
	return stats, nil
}

func stressWorker(ctx context.Context, table *stripemap.Table[int, int], r *rand.Rand, opts StressOptions) error {
	entries := make([]stripemap.Entry[int, int], opts.BulkSize)
	keys := make([]int, opts.BulkSize)
	for i := 0; i < opts.Ops; i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		k := r.IntN(opts.Keys)
		switch op := r.IntN(100); {
		case op < 40:
			if v, ok := table.GetValue(k); ok && !opts.Multimap && v != k {
				return errors.Errorf("key %d holds value %d", k, v)
			}
		case op < 70:
			if opts.Multimap {
				table.InsertAlways(k, k)
			} else {
				table.InsertUnique(k, k)
			}
		case op < 90:
			table.EraseFirst(k)
		case op < 95:
			for j := range entries {
				kk := r.IntN(opts.Keys)
				entries[j] = stripemap.Entry[int, int]{Key: kk, Value: kk}
			}
			if opts.Multimap {
				table.InsertBulkAlways(entries)
			} else {
				table.InsertBulkUnique(entries)
			}
		default:
			for j := range keys {
				keys[j] = r.IntN(opts.Keys)
			}
			table.EraseBulkAll(keys)
		}
	}
	return nil
}
