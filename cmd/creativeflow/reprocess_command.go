package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"creativeflow/internal/creative"
	"creativeflow/internal/logging"
)

func newReprocessCommand(ctx *commandContext) *cobra.Command {
	var (
		params      creative.ReprocessParams
		tab         string
		rows        []int
		writeBack   bool
		notifyDelay int
		jsonOutput  bool
	)

	cmd := &cobra.Command{
		Use:   "reprocess",
		Short: "Narrate and compose scripts already saved to a sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			app, err := buildApplication(signalCtx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.close(signalCtx); err != nil {
					logger.Warn("pending notifications were not delivered", logging.Error(err))
				}
			}()

			if tab == "" {
				tab = cfg.Sheets.DestinationTab
			}
			existing, err := app.sink.ReadExistingScripts(signalCtx, params.DestinationRef, tab)
			if err != nil {
				return err
			}
			params.Rows = selectRows(existing, rows)
			if len(params.Rows) == 0 {
				return fmt.Errorf("no scripts found in %q matching the requested rows", tab)
			}
			if !writeBack {
				params.DestinationRef = ""
			}
			if cmd.Flags().Changed("notify-delay") {
				params.NotifyDelaySeconds = &notifyDelay
			}
			req, err := creative.NewReprocessRequest(params, defaultsFromConfig(cfg))
			if err != nil {
				return err
			}

			result, err := app.orchestrator.Reprocess(signalCtx, req)
			if err != nil {
				return err
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
	flags.StringVarP(&params.DestinationRef, "sheet", "s", "", "Spreadsheet ID holding generated scripts")
	flags.StringVar(&tab, "tab", "", "Tab to read scripts from (defaults to sheets.destination_tab)")
	flags.IntSliceVar(&rows, "rows", nil, "Sheet row numbers to reprocess (default: all)")
	flags.BoolVar(&writeBack, "write-back", false, "Append the reprocessed results to the sheet")
	flags.StringVar(&params.DestinationTab, "dest-tab", "", "Tab for written-back results (defaults to sheets.destination_tab)")
	flags.StringVar(&params.VoiceID, "voice", "", "Voice ID (defaults to tts.default_voice)")
	flags.StringVarP(&params.Language, "language", "l", "", "Fallback language for rows without one")
	flags.StringVar(&params.BackgroundVideoRef, "background", "", "Background video path or URL; enables composition")
	flags.BoolVar(&params.Notify, "notify", false, "Request approval for each finished asset")
	flags.IntVar(&notifyDelay, "notify-delay", 0, "Seconds to wait before sending approval requests")
	flags.BoolVar(&jsonOutput, "json", false, "Output the result as JSON")
	_ = cmd.MarkFlagRequired("sheet")

	return cmd
}

// selectRows keeps the rows whose sheet row number is listed. An empty
// selection keeps every row.
func selectRows(existing []creative.ExistingScriptRow, wanted []int) []creative.ExistingScriptRow {
	if len(wanted) == 0 {
		return existing
	}
	keep := make(map[int]struct{}, len(wanted))
	for _, row := range wanted {
		keep[row] = struct{}{}
	}
	var out []creative.ExistingScriptRow
	for _, row := range existing {
		if _, ok := keep[row.Row]; ok {
			out = append(out, row)
		}
	}
	return out
}
