package cmd

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ambiyansyah-risyal/antrian"
)

var fireCmd = &cobra.Command{
	Use:   "fire <url>",
	Short: "Issue many concurrent calls and report their outcomes",
	Long: `Issue the same call n times from concurrent goroutines. Identical calls
supersede each other unless --distinct gives every call its own "seq"
query parameter. Outcomes are summarised per URL class when all calls
have resolved.`,
	Args: cobra.ExactArgs(1),
	RunE: runFire,
}

func init() {
	rootCmd.AddCommand(fireCmd)
	addRequestFlags(fireCmd)
	fireCmd.Flags().IntP("count", "n", 10, "number of calls")
	fireCmd.Flags().IntP("concurrency", "c", 0, "goroutines issuing calls (0 means one per call)")
	fireCmd.Flags().Bool("distinct", false, "add a distinct seq parameter to every call")
	fireCmd.Flags().Duration("linger", 0, "keep serving metrics this long after the last call")
}

type fireTally struct {
	ok        atomic.Int64
	cancelled atomic.Int64
	failed    atomic.Int64
}

func runFire(cmd *cobra.Command, args []string) error {
	count, err := cmd.Flags().GetInt("count")
	if err != nil {
		return err
	}
	if count < 1 {
		return errors.New("count must be at least 1")
	}
	concurrency, err := cmd.Flags().GetInt("concurrency")
	if err != nil {
		return err
	}
	if concurrency < 0 {
		return errors.New("concurrency must not be negative")
	}
	distinct, err := cmd.Flags().GetBool("distinct")
	if err != nil {
		return err
	}
	linger, err := cmd.Flags().GetDuration("linger")
	if err != nil {
		return err
	}

	template, err := requestFromFlags(cmd, args[0])
	if err != nil {
		return err
	}

	rt, err := setup(cmd)
	if err != nil {
		return err
	}
	defer rt.close(cmd.Context())

	ctx := cmd.Context()
	started := time.Now()
	var tally fireTally

	var g errgroup.Group
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i := 0; i < count; i++ {
		req := *template
		req.Params = cloneParams(template.Params)
		if distinct {
			req.Params.Set("seq", strconv.Itoa(i))
		}
		g.Go(func() error {
			_, err := rt.orch.Issue(ctx, &req)
			switch {
			case err == nil:
				tally.ok.Add(1)
			case antrian.IsCancelled(err):
				tally.cancelled.Add(1)
			default:
				tally.failed.Add(1)
			}
			// failures are reported, never returned
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	printFireReport(cmd.OutOrStdout(), rt.outcomes, &tally, time.Since(started))

	if linger > 0 && rt.metrics != nil {
		rt.logger.Info("Lingering for metrics scrape", zap.Duration("duration", linger), zap.String("addr", rt.metrics.addr))
		select {
		case <-time.After(linger):
		case <-ctx.Done():
		}
	}
	return nil
}

func cloneParams(p map[string][]string) map[string][]string {
	out := make(map[string][]string, len(p)+1)
	for k, v := range p {
		out[k] = slices.Clone(v)
	}
	return out
}

func printFireReport(w io.Writer, rec *antrian.MemoryOutcomeRecorder, tally *fireTally, elapsed time.Duration) {
	fmt.Fprintf(w, "calls: %d ok, %d cancelled, %d failed in %s\n",
		tally.ok.Load(), tally.cancelled.Load(), tally.failed.Load(), elapsed.Round(time.Millisecond))

	byClass := rec.ByClass()
	for _, class := range slices.Sorted(maps.Keys(byClass)) {
		c := byClass[class]
		fmt.Fprintf(w, "  %-30s succeeded=%d cached=%d failed=%d cancelled=%d\n",
			class, c.Succeeded, c.Cached, c.Failed, c.Cancelled)
	}

	failures := rec.Failures()
	for _, kind := range slices.Sorted(maps.Keys(failures)) {
		fmt.Fprintf(w, "  failure %-22s %d\n", kind, failures[kind])
	}
}
