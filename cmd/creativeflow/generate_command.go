package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"creativeflow/internal/creative"
	"creativeflow/internal/logging"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var (
		params      creative.GenerationParams
		perItem     bool
		strategy    string
		notifyDelay int
		primerFile  string
		jsonOutput  bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate scripts from a performance sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			params.Strategy, err = creative.ParseStrategy(strategy)
			if err != nil {
				return err
			}
			if perItem {
				params.Strategy = creative.StrategyPerItem
			}
			if cmd.Flags().Changed("notify-delay") {
				params.NotifyDelaySeconds = &notifyDelay
			}
			if path := strings.TrimSpace(primerFile); path != "" {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read primer: %w", err)
				}
				params.Primer = string(data)
			}
			req, err := creative.NewGenerationRequest(params, defaultsFromConfig(cfg))
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			app, err := buildApplication(signalCtx, cfg, logger)
			if err != nil {
				return err
			}
			result, runErr := app.orchestrator.Generate(signalCtx, req)
			if closeErr := app.close(signalCtx); closeErr != nil && runErr == nil {
				logger.Warn("pending notifications were not delivered", logging.Error(closeErr))
			}
			if runErr != nil {
				return runErr
			}

			if jsonOutput {
				return writeJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(out, suggestionHeaders, suggestionRows(result.Suggestions), nil))
			fmt.Fprintf(out, "Run %s: %s\n", result.RunID, result.Message)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&params.SourceRef, "sheet", "s", "", "Spreadsheet ID holding performance data (results are written back to it)")
	flags.StringVar(&params.SourceTab, "tab", "", "Performance tab (defaults to sheets.source_tab)")
	flags.StringVar(&params.DestinationTab, "dest-tab", "", "Destination tab (defaults to sheets.destination_tab)")
	flags.IntVarP(&params.Count, "count", "n", 0, "Number of scripts (defaults to generation.default_count)")
	flags.IntVar(&params.ExperimentalPercentage, "experimental", 0, "Percentage of scripts that diverge from top performers (0-100)")
	flags.StringVarP(&params.Language, "language", "l", "", "Script language (code or name)")
	flags.StringVar(&strategy, "strategy", "batch", "Generation strategy: batch or per-item")
	flags.BoolVar(&perItem, "per-item", false, "Shorthand for --strategy per-item")
	flags.StringVar(&params.Guidance, "guidance", "", "Additional guidance for the model")
	flags.StringVar(&primerFile, "primer-file", "", "File whose contents replace the default primer")
	flags.BoolVar(&params.WithAudio, "audio", false, "Synthesize narration for each script")
	flags.StringVar(&params.VoiceID, "voice", "", "Voice ID (defaults to tts.default_voice)")
	flags.StringVar(&params.BackgroundVideoRef, "background", "", "Background video path or URL; enables composition")
	flags.BoolVar(&params.Notify, "notify", false, "Request approval for each finished asset")
	flags.IntVar(&notifyDelay, "notify-delay", 0, "Seconds to wait before sending approval requests")
	flags.BoolVar(&jsonOutput, "json", false, "Output the result as JSON")
	_ = cmd.MarkFlagRequired("sheet")

	return cmd
}

var suggestionHeaders = []string{"#", "Title", "Language", "Audio", "Video", "Error"}

func suggestionRows(suggestions []creative.ScriptSuggestion) [][]string {
	rows := make([][]string, 0, len(suggestions))
	for _, s := range suggestions {
		errText := ""
		if s.StageError != nil {
			errText = s.StageError.Error()
		}
		rows = append(rows, []string{
			strconv.Itoa(s.Index + 1),
			s.Title,
			s.Language,
			yesNo(s.AudioRef != ""),
			yesNo(s.VideoRef != ""),
			errText,
		})
	}
	return rows
}
