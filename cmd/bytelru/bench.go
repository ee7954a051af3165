package main

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newBenchCmd(a *app) *cobra.Command {
	var (
		n       int
		conc    int
		valSize int
		metrics bool
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Put then get n keys from c goroutines against one locked store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if n <= 0 || conc <= 0 || valSize < 0 {
				return fmt.Errorf("bench: need n > 0, c > 0, val >= 0")
			}
			store, err := a.newStore()
			if err != nil {
				return err
			}

			var misses, rejected atomic.Int64
			g := new(errgroup.Group)
			g.SetLimit(conc)
			start := time.Now()
			for i := 0; i < n; i++ {
				g.Go(func() error {
					key := fmt.Sprintf("k%d", i)
					payload := bytes.Repeat([]byte{byte(rand.IntN(256))}, valSize)
					if err := store.Put(key, payload); err != nil {
						rejected.Add(1)
						return nil
					}
					if _, err := store.Get(key); err != nil {
						// evicted by a concurrent writer before we read it back
						misses.Add(1)
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			dur := time.Since(start)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Completed %d ops in %s (%.2f ops/s)\n", n*2, dur, float64(n*2)/dur.Seconds())
			fmt.Fprintf(out, "items=%d used=%d/%d misses=%d rejected=%d\n",
				store.Len(), store.Used(), store.Capacity(), misses.Load(), rejected.Load())
			a.log.Debug("bench done", zap.Duration("elapsed", dur), zap.Int64("misses", misses.Load()))

			if metrics {
				return a.writeMetrics(out)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVarP(&n, "requests", "n", 5000, "keys to put and get")
	f.IntVarP(&conc, "concurrency", "c", 32, "concurrent workers")
	f.IntVar(&valSize, "val", 128, "value size bytes")
	f.BoolVar(&metrics, "metrics", false, "print Prometheus metrics after the run")
	return cmd
}
