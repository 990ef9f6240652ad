package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kilianp07/prefetch/app"
	"github.com/kilianp07/prefetch/config"
	"github.com/kilianp07/prefetch/core/prefetch"
	"github.com/kilianp07/prefetch/infra/fetch"
	"github.com/kilianp07/prefetch/infra/logger"
	"github.com/kilianp07/prefetch/pkg/export"
	"github.com/kilianp07/prefetch/qa/scenarios"
)

var (
	replayLive   bool
	replayCheck  bool
	replayFormat string
)

var replayCmd = &cobra.Command{
	Use:   "replay <scenario.yaml>",
	Short: "Replay a recorded navigation script and print the prefetch plan",
	Args:  cobra.ExactArgs(1),
	RunE:  replay,
}

func init() {
	replayCmd.Flags().BoolVar(&replayLive, "live", false, "send the admitted fetches using the fetch section of the config")
	replayCmd.Flags().BoolVar(&replayCheck, "check", false, "fail when the final plan does not match the scenario expectations")
	replayCmd.Flags().StringVarP(&replayFormat, "format", "f", "table", "output format: table, json or csv")
	rootCmd.AddCommand(replayCmd)
}

func replay(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := scenarios.Load(args[0])
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}
	var fetcher prefetch.Fetcher = fetch.NewDryRunFetcher(logger.New("replay"))
	if replayLive {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		fetcher = app.NewFetcher(cfg.Fetch)
	}
	rep, err := scenarios.Run(ctx, sc, fetcher, prefetch.WithLogger(logger.New("replay")))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	switch replayFormat {
	case "table", "":
		printReport(out, rep)
	case "json":
		if err := export.WriteJSON(out, export.Plan(rep.Outcomes)); err != nil {
			return err
		}
	case "csv":
		if err := export.WriteCSV(out, export.Plan(rep.Outcomes)); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q", replayFormat)
	}
	if replayCheck {
		return rep.Check()
	}
	return nil
}

func printReport(w io.Writer, rep *scenarios.Report) {
	fmt.Fprintf(w, "scenario %s: %d steps, %d runs\n", rep.Scenario.Name, len(rep.Scenario.Steps), len(rep.Outcomes))
	for i, out := range rep.Outcomes {
		fmt.Fprintf(w, "\nrun %d from %q: %s\n", i+1, out.State, out.Status)
		if len(out.Candidates) == 0 {
			continue
		}
		fetched := make(map[string]prefetch.FetchResult, len(out.Results))
		for _, r := range out.Results {
			fetched[r.Candidate.URL] = r
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "URL\tSTATE\tPROB\tDECAY\tCOST\tSCORE\tFETCH")
		for _, c := range out.Candidates {
			status := "-"
			if r, ok := fetched[c.URL]; ok {
				status = "ok"
				if r.Err != nil {
					status = "failed: " + r.Err.Error()
				}
			}
			fmt.Fprintf(tw, "%s\t%s\t%.3f\t%.3f\t%.0f\t%.3g\t%s\n", c.URL, c.State, c.Probability, c.Decay, c.Cost, c.Score, status)
		}
		_ = tw.Flush()
	}
}
