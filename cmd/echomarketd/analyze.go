package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/reachskumar/echomarket/config"
	"github.com/reachskumar/echomarket/internal/export"
	"github.com/reachskumar/echomarket/internal/pipeline"
)

func analyzeCMD() *cobra.Command {
	var cfgPath string
	var format string
	var out string
	analyze := &cobra.Command{
		Use:   "analyze TICKER",
		Short: "Run a one-shot analysis and print the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			ctx := context.Background()
			st := openStore(ctx, cfg, log)
			if st != nil {
				defer st.Close()
			}
			p := buildPipeline(cfg, st, log, nil)

			state, err := p.Run(ctx, args[0])
			if err != nil {
				return err
			}
			report := pipeline.Render(state, uuid.NewString(), time.Now())

			w := os.Stdout
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				w = f
			}

			switch format {
			case "json":
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			case "csv":
				return export.WriteCSV(w, report)
			case "pdf":
				if out == "" {
					return fmt.Errorf("pdf output requires --out")
				}
				data, err := export.WritePDF(report)
				if err != nil {
					return err
				}
				_, err = w.Write(data)
				return err
			default:
				return fmt.Errorf("unknown format: %s", format)
			}
		},
	}
	analyze.Flags().StringVarP(&cfgPath, "config", "c", "", "config file path")
	analyze.Flags().StringVarP(&format, "format", "f", "json", "output format: json, csv or pdf")
	analyze.Flags().StringVarP(&out, "out", "o", "", "write output to file instead of stdout")
	return analyze
}
