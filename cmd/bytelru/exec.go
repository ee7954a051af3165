package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ryandielhenn/bytelru/internal/replay"
)

func newExecCmd(a *app) *cobra.Command {
	var metrics bool

	cmd := &cobra.Command{
		Use:   "exec [script]",
		Short: "Run an operation script against a fresh store",
		Long: `Reads one operation per line (put, putnx, set, get, peek, del, len, used, keys)
from the given file, or from stdin when the argument is omitted or "-",
and prints one result line per operation.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			store, err := a.newStore()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			st, err := replay.NewRunner(store, a.log).Run(in, out)
			if err != nil {
				return fmt.Errorf("exec: %w", err)
			}
			a.log.Info("script done",
				zap.Int("ops", st.Ops),
				zap.Int("failed", st.Failed),
				zap.Int("items", store.Len()),
				zap.Int("used_bytes", store.Used()),
			)
			if metrics {
				return a.writeMetrics(out)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&metrics, "metrics", false, "print Prometheus metrics after the run")
	return cmd
}
