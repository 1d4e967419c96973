package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"evseg/internal/bootstrap"
	trialdto "evseg/internal/modules/trial/dto"
	"evseg/internal/platform/config"
	"evseg/internal/platform/logging"
	trialview "evseg/internal/ui/views/trial"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var workspace string

	root := &cobra.Command{
		Use:           "evseg",
		Short:         "Event-segmentation video trials",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&workspace, "workspace", ".", "workspace holding .evseg state and plugins")

	root.AddCommand(newRunCmd(&workspace))
	root.AddCommand(newSimulateCmd(&workspace))
	root.AddCommand(newRenderCmd(&workspace))
	root.AddCommand(newParamsCmd(&workspace))
	root.AddCommand(newDataCmd(&workspace))
	root.AddCommand(newReindexCmd(&workspace))
	root.AddCommand(newPluginCmd(&workspace))
	return root
}

// session is a loaded app with its host loop running.
type session struct {
	app   *bootstrap.App
	close func()
}

// loadApp builds the app and starts its host loop. Terminal UI sessions log to
// the workspace log file so the display stays clean.
func loadApp(workspace string, tui bool) (*session, error) {
	cfg, err := config.New(workspace)
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.LogLevel, os.Stderr)
	var logFile io.Closer
	if tui {
		logger, logFile, err = logging.NewFile(cfg.LogLevel, cfg.LogPath)
		if err != nil {
			return nil, err
		}
	}
	app, err := bootstrap.New(cfg, logger)
	if err != nil {
		if logFile != nil {
			_ = logFile.Close()
		}
		return nil, err
	}
	loopCtx, stopLoop := context.WithCancel(context.Background())
	wait := app.Start(loopCtx)
	return &session{
		app: app,
		close: func() {
			stopLoop()
			wait()
			_ = app.Close()
			if logFile != nil {
				_ = logFile.Close()
			}
		},
	}, nil
}

func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

type responseFlags struct {
	rt  float64
	key string
}

func (f *responseFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.rt, "rt", 0, "simulated reaction time in ms")
	cmd.Flags().StringVar(&f.key, "key", "", "simulated response key")
}

func (f *responseFlags) values(cmd *cobra.Command) (*float64, *string) {
	var rt *float64
	var key *string
	if cmd.Flags().Changed("rt") {
		rt = &f.rt
	}
	if cmd.Flags().Changed("key") {
		key = &f.key
	}
	return rt, key
}

func newRunCmd(workspace *string) *cobra.Command {
	var trial int
	cmd := &cobra.Command{
		Use:   "run <timeline.yaml>",
		Short: "Run a timeline with a participant at the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadApp(*workspace, true)
			if err != nil {
				return err
			}
			defer s.close()
			out, err := bootstrap.RunTUI(cmd.Context(), s.app, trialview.Options{
				Path:  args[0],
				Mode:  trialdto.ModeRun,
				Trial: trial,
			})
			printRun(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().IntVar(&trial, "trial", trialdto.AllTrials, "run a single trial by index")
	return cmd
}

func newSimulateCmd(workspace *string) *cobra.Command {
	var mode string
	var trial int
	var headless bool
	var resp responseFlags
	cmd := &cobra.Command{
		Use:   "simulate <timeline.yaml>",
		Short: "Simulate a participant on a timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if mode != trialdto.ModeDataOnly && mode != trialdto.ModeVisual {
				return fmt.Errorf("--mode must be %s or %s", trialdto.ModeDataOnly, trialdto.ModeVisual)
			}
			rt, key := resp.values(cmd)
			tui := mode == trialdto.ModeVisual && !headless
			s, err := loadApp(*workspace, tui)
			if err != nil {
				return err
			}
			defer s.close()

			var out trialdto.RunOutput
			if tui {
				out, err = bootstrap.RunTUI(cmd.Context(), s.app, trialview.Options{
					Path:  args[0],
					Mode:  mode,
					Trial: trial,
					RT:    rt,
					Key:   key,
				})
			} else {
				ctx, cancel := interruptContext()
				defer cancel()
				out, err = s.app.TrialCLI.Simulate(ctx, args[0], mode, trial, rt, key)
			}
			printRun(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().StringVar(&mode, "mode", trialdto.ModeDataOnly, "simulation mode: data-only|visual")
	cmd.Flags().IntVar(&trial, "trial", trialdto.AllTrials, "simulate a single trial by index")
	cmd.Flags().BoolVar(&headless, "headless", false, "run visual mode without the terminal display")
	resp.register(cmd)
	return cmd
}

func newRenderCmd(workspace *string) *cobra.Command {
	var trial int
	var format string
	cmd := &cobra.Command{
		Use:   "render <timeline.yaml>",
		Short: "Print a trial's display tree as HTML or its parameters as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadApp(*workspace, false)
			if err != nil {
				return err
			}
			defer s.close()
			switch format {
			case "html":
				out, err := s.app.TrialCLI.Render(cmd.Context(), args[0], trial)
				if err != nil {
					return err
				}
				for _, w := range out.Warnings {
					_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), out.HTML)
			case "json":
				raw, err := s.app.TrialCLI.TrialJSON(cmd.Context(), args[0], trial)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), raw)
			default:
				return fmt.Errorf("--format must be html or json")
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&trial, "trial", 0, "trial index")
	cmd.Flags().StringVar(&format, "format", "html", "output format: html|json")
	return cmd
}

func newParamsCmd(workspace *string) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "params",
		Short: "Show the trial parameter reference",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadApp(*workspace, false)
			if err != nil {
				return err
			}
			defer s.close()
			params, err := s.app.TrialCLI.Parameters(cmd.Context())
			if err != nil {
				return err
			}
			if plain {
				for _, p := range params {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\tarray=%t\tdefault=%s\n", p.Name, p.Type, p.Array, p.Default)
				}
				return nil
			}
			rendered, err := trialview.RenderParameters(params, 100)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), rendered)
			return nil
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "tab separated output")
	return cmd
}

func newDataCmd(workspace *string) *cobra.Command {
	data := &cobra.Command{Use: "data", Short: "Recorded trial data"}

	data.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List recorded runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadApp(*workspace, false)
			if err != nil {
				return err
			}
			defer s.close()
			runs, err := s.app.DataCLI.ListRuns(cmd.Context())
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
				return nil
			}
			for _, r := range runs {
				meanRT := "-"
				if r.HasRT {
					meanRT = fmt.Sprintf("%.1f", r.MeanRT)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\tparticipant=%d\ttrials=%d\tresponses=%d\tmean_rt=%s\tstarted=%s\n",
					r.RunID, r.ParticipantID, r.Trials, r.Responses, meanRT, r.StartedAt.Format("2006-01-02T15:04:05Z07:00"))
			}
			return nil
		},
	})

	data.AddCommand(&cobra.Command{
		Use:   "records <run-id>",
		Short: "List the trials recorded for a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadApp(*workspace, false)
			if err != nil {
				return err
			}
			defer s.close()
			records, err := s.app.DataCLI.ListRecords(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, r := range records {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "trial=%d mode=%s stimulus=%s rt=%v key=%q aborted=%t\n",
					r.Index, r.Mode, r.Stimulus, r.RT, r.Key, r.Aborted)
			}
			return nil
		},
	})

	var format, runID, outPath string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export recorded trial data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadApp(*workspace, false)
			if err != nil {
				return err
			}
			defer s.close()
			w := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create export file: %w", err)
				}
				defer f.Close()
				w = f
			}
			out, err := s.app.DataCLI.Export(cmd.Context(), format, runID, w)
			if err != nil {
				return err
			}
			if outPath != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "exported %d rows as %s to %s\n", out.Rows, out.Format, outPath)
			}
			return nil
		},
	}
	exportCmd.Flags().StringVar(&format, "format", "csv", "export format: csv|json")
	exportCmd.Flags().StringVar(&runID, "run", "", "only export this run")
	exportCmd.Flags().StringVar(&outPath, "out", "", "write to a file instead of stdout")
	data.AddCommand(exportCmd)
	return data
}

func newReindexCmd(workspace *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the SQLite projection from the trial data log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadApp(*workspace, false)
			if err != nil {
				return err
			}
			defer s.close()
			if err := s.app.DataCLI.Reindex(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "reindex complete")
			return nil
		},
	}
}

func newPluginCmd(workspace *string) *cobra.Command {
	plugin := &cobra.Command{Use: "plugin", Short: "Trial plugin operations"}
	plugin.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List plugin manifests",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadApp(*workspace, false)
			if err != nil {
				return err
			}
			defer s.close()
			plugins, err := s.app.PluginCLI.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(plugins) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no plugins configured")
				return nil
			}
			for _, p := range plugins {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s@%s enabled=%t capabilities=%s binary=%s\n",
					p.Name, p.Version, p.Enabled, strings.Join(p.Capabilities, ","), p.Binary)
			}
			return nil
		},
	})

	plugin.AddCommand(&cobra.Command{
		Use:   "doctor",
		Short: "Validate plugin checksums and lifecycle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadApp(*workspace, false)
			if err != nil {
				return err
			}
			defer s.close()
			results, err := s.app.PluginCLI.Doctor(cmd.Context())
			if err != nil {
				return err
			}
			if len(results) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no plugins configured")
				return nil
			}
			for _, r := range results {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s checksum=%t binary=%t lifecycle=%t", r.Name, r.ChecksumValid, r.BinaryReachable, r.LifecycleOK)
				if r.Error != "" {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), " error=%q", r.Error)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	})

	plugin.AddCommand(&cobra.Command{
		Use:   "describe <plugin>",
		Short: "Show the parameters a plugin accepts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadApp(*workspace, false)
			if err != nil {
				return err
			}
			defer s.close()
			out, err := s.app.PluginCLI.Describe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s@%s\n", out.Name, out.Version)
			for _, p := range out.Parameters {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  %s\t%s\tarray=%t\tdefault=%s\n", p.Name, p.Type, p.Array, p.Default)
			}
			return nil
		},
	})

	var trial int
	var resp responseFlags
	simulateCmd := &cobra.Command{
		Use:   "simulate <plugin> <timeline.yaml>",
		Short: "Simulate one trial of a timeline inside a plugin process",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadApp(*workspace, false)
			if err != nil {
				return err
			}
			defer s.close()
			trialJSON, err := s.app.TrialCLI.TrialJSON(cmd.Context(), args[1], trial)
			if err != nil {
				return err
			}
			rt, key := resp.values(cmd)
			out, err := s.app.PluginCLI.Simulate(cmd.Context(), args[0], trialJSON, trialdto.ModeDataOnly, rt, key)
			if err != nil {
				return err
			}
			printData(cmd.OutOrStdout(), fmt.Sprintf("plugin=%s trial=%d", out.PluginName, trial), out.Data)
			return nil
		},
	}
	simulateCmd.Flags().IntVar(&trial, "trial", 0, "trial index")
	resp.register(simulateCmd)
	plugin.AddCommand(simulateCmd)
	return plugin
}

func printRun(w io.Writer, out trialdto.RunOutput) {
	if out.RunID == "" {
		return
	}
	_, _ = fmt.Fprintf(w, "run=%s mode=%s trials=%d\n", out.RunID, out.Mode, len(out.Trials))
	for _, t := range out.Trials {
		prefix := fmt.Sprintf("trial=%d", t.Index)
		if t.Aborted {
			prefix += " aborted=true"
		}
		printData(w, prefix, t.Data)
	}
}

func printData(w io.Writer, prefix string, data map[string]string) {
	_, _ = fmt.Fprintf(w, "%s participant_id=%s rt=%s key=%s stimInTrial=%s\n",
		prefix, data["participant_id"], data["rt"], data["key"], data["stimInTrial"])
}
