package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/absmach/cohort/pkg/round"
	"github.com/absmach/cohort/pkg/sdk"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var errRunFailed = errors.New("run did not succeed")

type runFlags struct {
	numRounds    uint64
	minFit       uint64
	minAvailable uint64
	maxPerRound  uint64
	timeout      string
	retries      uint64
	seed         int64
	backoff      string
	evaluate     bool
	fuse         bool
	params       map[string]string
	initialKey   string
	interactive  bool
	wait         bool
	interval     time.Duration
}

// request keeps only the options the user changed so the host applies
// its own defaults to the rest.
func (f runFlags) request(changed func(string) bool) sdk.RunRequest {
	req := sdk.RunRequest{
		InitialKey: f.initialKey,
		Params:     f.params,
	}
	if changed("rounds") {
		req.NumRounds = &f.numRounds
	}
	if changed("min-fit") {
		req.MinFitClients = &f.minFit
	}
	if changed("min-available") {
		req.MinAvailableClients = &f.minAvailable
	}
	if changed("max-per-round") {
		req.MaxClientsPerRound = &f.maxPerRound
	}
	if changed("retries") {
		req.MaxRoundRetries = &f.retries
	}
	if changed("seed") {
		req.SelectionSeed = &f.seed
	}
	if changed("evaluate") {
		req.Evaluate = &f.evaluate
	}
	if changed("fuse") {
		req.Fuse = &f.fuse
	}
	if changed("timeout") {
		req.RoundTimeout = f.timeout
	}
	if changed("backoff") {
		req.RetryBackoff = f.backoff
	}
	if len(req.Params) == 0 {
		req.Params = nil
	}

	return req
}

func promptRun(f *runFlags) (func(string) bool, error) {
	rounds := strconv.FormatUint(f.numRounds, 10)
	minFit := strconv.FormatUint(f.minFit, 10)
	minAvailable := strconv.FormatUint(f.minAvailable, 10)
	seed := strconv.FormatInt(f.seed, 10)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Rounds").Value(&rounds).Validate(validUint),
			huh.NewInput().Title("Minimum clients per round").Value(&minFit).Validate(validUint),
			huh.NewInput().Title("Minimum available clients").Value(&minAvailable).Validate(validUint),
			huh.NewInput().Title("Round timeout").Value(&f.timeout).Validate(validDuration),
			huh.NewInput().Title("Selection seed").Value(&seed).Validate(func(s string) error {
				_, err := strconv.ParseInt(s, 10, 64)

				return err
			}),
		),
		huh.NewGroup(
			huh.NewConfirm().Title("Evaluate after each round?").Value(&f.evaluate),
			huh.NewConfirm().Title("Fuse client profiles at the end?").Value(&f.fuse),
		),
	)
	if err := form.Run(); err != nil {
		return nil, err
	}

	f.numRounds, _ = strconv.ParseUint(rounds, 10, 64)
	f.minFit, _ = strconv.ParseUint(minFit, 10, 64)
	f.minAvailable, _ = strconv.ParseUint(minAvailable, 10, 64)
	f.seed, _ = strconv.ParseInt(seed, 10, 64)

	prompted := map[string]bool{
		"rounds":        true,
		"min-fit":       true,
		"min-available": true,
		"timeout":       true,
		"seed":          true,
		"evaluate":      true,
		"fuse":          true,
	}

	return func(name string) bool { return prompted[name] }, nil
}

func validUint(s string) error {
	_, err := strconv.ParseUint(s, 10, 64)

	return err
}

func validDuration(s string) error {
	_, err := time.ParseDuration(s)

	return err
}

func waitRun(cmd *cobra.Command, id string, interval time.Duration) (round.Run, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		run, err := csdk.GetRun(id)
		if err != nil {
			return round.Run{}, err
		}
		if run.Status != round.RunRunning {
			return run, nil
		}

		select {
		case <-cmd.Context().Done():
			return run, cmd.Context().Err()
		case <-ticker.C:
		}
	}
}

func NewRunsCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "runs [start|view|list|stop|wait|rounds|round]",
		Short: "Training runs",
		Long:  `Start, inspect and stop federated training runs on the host.`,
	}

	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start run",
		Long: `Start a training run. Options left unset keep the host's defaults.

Examples:
  # Run five rounds with a fixed selection seed and wait for the result
  cohort-cli runs start --rounds 5 --seed 42 --wait

  # Pass training parameters through to every client
  cohort-cli runs start --param local_epochs=2 --param batch_size=16`,
		Run: func(cmd *cobra.Command, _ []string) {
			changed := cmd.Flags().Changed
			if f.interactive {
				var err error
				if changed, err = promptRun(&f); err != nil {
					logErrorCmd(*cmd, err)

					return
				}
			}

			run, err := csdk.StartRun(f.request(changed))
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			if !f.wait {
				logJSONCmd(*cmd, run)

				return
			}

			run, err = waitRun(cmd, run.ID, f.interval)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, run)
			if run.Status != round.RunSucceeded {
				logErrorCmd(*cmd, fmt.Errorf("%w: %s", errRunFailed, run.Status))

				return
			}
			logSuccessCmd(*cmd, fmt.Sprintf("Run %s completed %d rounds", run.ID, run.RoundsCompleted))
		},
	}

	startCmd.Flags().Uint64Var(&f.numRounds, "rounds", 3, "Number of rounds")
	startCmd.Flags().Uint64Var(&f.minFit, "min-fit", 2, "Reports needed to aggregate a round")
	startCmd.Flags().Uint64Var(&f.minAvailable, "min-available", 2, "Eligible clients needed to open a round")
	startCmd.Flags().Uint64Var(&f.maxPerRound, "max-per-round", 2, "Clients selected per round")
	startCmd.Flags().StringVar(&f.timeout, "timeout", "5m", "Round timeout")
	startCmd.Flags().Uint64Var(&f.retries, "retries", 2, "Retries per round before the run fails")
	startCmd.Flags().Int64Var(&f.seed, "seed", 0, "Selection seed")
	startCmd.Flags().StringVar(&f.backoff, "backoff", "1s", "Initial delay between round retries")
	startCmd.Flags().BoolVar(&f.evaluate, "evaluate", true, "Evaluate the global snapshot after each round")
	startCmd.Flags().BoolVar(&f.fuse, "fuse", true, "Fuse client profiles after the last round")
	startCmd.Flags().StringToStringVar(&f.params, "param", map[string]string{}, "Training parameter passed to clients (key=value)")
	startCmd.Flags().StringVar(&f.initialKey, "initial", "", "Blob key of the initial snapshot")
	startCmd.Flags().BoolVarP(&f.interactive, "interactive", "i", false, "Prompt for run options")
	startCmd.Flags().BoolVarP(&f.wait, "wait", "w", false, "Wait until the run finishes")
	startCmd.Flags().DurationVar(&f.interval, "interval", 2*time.Second, "Polling interval when waiting")

	viewCmd := &cobra.Command{
		Use:   "view <id>",
		Short: "View run",
		Long:  `View run.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			run, err := csdk.GetRun(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, run)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List runs",
		Long:  `List runs.`,
		Run: func(cmd *cobra.Command, _ []string) {
			page, err := csdk.ListRuns(defOffset, defLimit)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, page)
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop <id>",
		Short: "Stop run",
		Long:  `Cancel an active run. The last completed global snapshot is kept.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			if err := csdk.StopRun(args[0]); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logOKCmd(*cmd)
		},
	}

	waitCmd := &cobra.Command{
		Use:   "wait <id>",
		Short: "Wait for run",
		Long:  `Poll a run until it succeeds, fails or is cancelled.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			run, err := waitRun(cmd, args[0], f.interval)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, run)
		},
	}
	waitCmd.Flags().DurationVar(&f.interval, "interval", 2*time.Second, "Polling interval")

	roundsCmd := &cobra.Command{
		Use:   "rounds <run_id>",
		Short: "List rounds of a run",
		Long:  `List every round attempt of a run, including abandoned ones.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			page, err := csdk.ListRounds(args[0], defOffset, defLimit)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, page)
		},
	}

	roundCmd := &cobra.Command{
		Use:   "round <round_id>",
		Short: "View round",
		Long:  `View a single round attempt.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			r, err := csdk.GetRound(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, r)
		},
	}

	cmd.AddCommand(startCmd)
	cmd.AddCommand(viewCmd)
	cmd.AddCommand(listCmd)
	cmd.AddCommand(stopCmd)
	cmd.AddCommand(waitCmd)
	cmd.AddCommand(roundsCmd)
	cmd.AddCommand(roundCmd)

	cmd.PersistentFlags().Uint64VarP(
		&defOffset,
		"offset",
		"o",
		defOffset,
		"Offset",
	)

	cmd.PersistentFlags().Uint64VarP(
		&defLimit,
		"limit",
		"l",
		defLimit,
		"Limit",
	)

	return cmd
}
