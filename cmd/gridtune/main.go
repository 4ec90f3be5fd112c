// gridtune runs tuning experiments from the command line: describe the
// objective, the grid and the heuristic in a YAML file and run it to
// completion without the HTTP service.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/perfkit/gridtune/internal/experiment"
	"github.com/perfkit/gridtune/internal/logging"
	"github.com/perfkit/gridtune/internal/objective"
	"github.com/perfkit/gridtune/internal/optimization"
	"github.com/perfkit/gridtune/internal/optimization/engine"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gridtune",
		Short:         "Black-box tuner for discrete parameter grids",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	root.AddCommand(newObjectivesCmd())
	root.AddCommand(newHeuristicsCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var (
		specPath string
		logLevel string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "run -f experiment.yaml",
		Short: "Run one experiment to completion and print the outcome",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(specPath)
			if err != nil {
				return fmt.Errorf("reading experiment file: %w", err)
			}

			var spec experiment.Spec
			if err := yaml.Unmarshal(data, &spec); err != nil {
				return fmt.Errorf("parsing experiment file: %w", err)
			}

			obj, err := objective.Get(spec.Objective)
			if err != nil {
				return err
			}

			logger := logging.New(parseLevel(logLevel), os.Stderr)
			cfg, err := spec.Build(obj.New(), logging.NewZapLogger(logger), nil)
			if err != nil {
				return err
			}

			eng, err := engine.New(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			result, err := eng.Optimize(ctx)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			printResult(cmd, &spec, result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&specPath, "file", "f", "", "experiment description file")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "minimum log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func parseLevel(level string) logging.LogLevel {
	switch level {
	case "debug":
		return logging.DebugLevel
	case "info":
		return logging.InfoLevel
	case "error":
		return logging.ErrorLevel
	default:
		return logging.WarnLevel
	}
}

func printResult(cmd *cobra.Command, spec *experiment.Spec, result *engine.Result) {
	out := cmd.OutOrStdout()
	name := spec.Name
	if name == "" {
		name = spec.Objective
	}
	fmt.Fprintf(out, "experiment: %s\n", name)
	fmt.Fprintf(out, "state:      %s", result.State)
	if result.StoppedBy != "" {
		fmt.Fprintf(out, " (%s)", result.StoppedBy)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "best:       %s -> %g\n", formatPoint(spec, result.BestParameters), result.BestFitness)

	s := result.Summary
	fmt.Fprintf(out, "trials:     %d (%d initialization, %d iterations)\n",
		s.Trials, s.Trials-s.Iterations, s.Iterations)
	fmt.Fprintf(out, "heuristic:  %s\n", s.Heuristic)
	fmt.Fprintf(out, "resampling: %s, %d extra observations\n", s.ResamplingPolicy, s.TotalResamples)
	if s.TruncatedTrials > 0 {
		fmt.Fprintf(out, "truncated:  %d trials\n", s.TruncatedTrials)
	}
	fmt.Fprintf(out, "explored:   %.1f%% of the grid\n", s.ExploredRatio*100)
	fmt.Fprintf(out, "elapsed:    %s\n", s.Elapsed)
}

// formatPoint labels the best point with the declared dimension names.
func formatPoint(spec *experiment.Spec, point optimization.ParameterVector) string {
	if len(point) == 0 {
		return "(none)"
	}
	parts := make([]string, len(point))
	for i, v := range point {
		if i < len(spec.Grid) && spec.Grid[i].Name != "" {
			parts[i] = fmt.Sprintf("%s=%g", spec.Grid[i].Name, v)
		} else {
			parts[i] = fmt.Sprintf("%g", v)
		}
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += " " + p
	}
	return out
}

func newObjectivesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "objectives",
		Short: "List the registered objective functions",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range objective.Names() {
				spec, err := objective.Get(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", spec.Name, spec.Description)
			}
			return nil
		},
	}
}

func newHeuristicsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "heuristics",
		Short: "List the registered search strategies",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range optimization.HeuristicNames() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gridtune version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gridtune %s\n", version)
		},
	}
}
