// Command cloak de-identifies sensitive text from a file or stdin and
// prints the transformed text plus a JSON entity report. It is a thin
// collaborator around the pipeline: it supplies text and configuration
// and renders the result; raw matched text never appears in its output.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloak-ai/cloak/internal/config"
	"github.com/cloak-ai/cloak/internal/logsafe"
	"github.com/cloak-ai/cloak/internal/ner"
	"github.com/cloak-ai/cloak/internal/pipeline"
	"github.com/cloak-ai/cloak/internal/transform"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Errors can quote input fragments; scrub before printing.
		logsafe.Fatalf("cloak: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cloak",
		Short:         "De-identify sensitive text (PII/PHI)",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newProcessCmd())
	return root
}

func newProcessCmd() *cobra.Command {
	var (
		configPath    string
		inputPath     string
		mode          string
		policyName    string
		defaultAction string
		riskThreshold float64
		reportPath    string
	)

	cmd := &cobra.Command{
		Use:   "process [file]",
		Short: "Run the de-identification pipeline over a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				inputPath = args[0]
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if mode != "" {
				cfg.Policy.Mode = mode
			}
			if policyName != "" {
				cfg.Policy.Policy = policyName
			}
			if defaultAction != "" {
				cfg.Policy.DefaultAction = defaultAction
			}
			if cmd.Flags().Changed("risk-threshold") {
				cfg.Policy.RiskThreshold = &riskThreshold
			}

			pipeCfg, err := config.PipelineConfig(cfg)
			if err != nil {
				return err
			}

			var statistical ner.Detector
			if cfg.Detection.NER.BundleDir != "" {
				model, err := ner.LoadModel(cfg.Detection.NER.BundleDir, cfg.Detection.NER.MaxTokens)
				if err != nil {
					logsafe.Logf("ner unavailable, continuing with pattern detection only: %v", err)
					statistical = ner.Unavailable{}
				} else {
					statistical = model
				}
			}

			p, err := pipeline.New(pipeCfg, statistical)
			if err != nil {
				return err
			}

			text, err := readInput(inputPath)
			if err != nil {
				return err
			}

			vault, err := transform.NewVault()
			if err != nil {
				return err
			}

			res, err := p.Process(cmd.Context(), text, vault)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), res.Text)
			return writeReport(cmd.ErrOrStderr(), reportPath, res.Report)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "cloak.yaml", "path to config file")
	cmd.Flags().StringVar(&mode, "mode", "", "override mode (SAFE_HARBOR or RISK_BASED)")
	cmd.Flags().StringVar(&policyName, "policy", "", "override policy (HIPAA, GENERIC_PII or CUSTOM)")
	cmd.Flags().StringVar(&defaultAction, "default-action", "", "override default action (REDACT, MASK, HASH or TOKENIZE)")
	cmd.Flags().Float64Var(&riskThreshold, "risk-threshold", 0, "override risk threshold for RISK_BASED mode")
	cmd.Flags().StringVar(&reportPath, "report", "", "write the JSON report to this file instead of stderr")
	return cmd
}

func readInput(path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func writeReport(fallback io.Writer, path string, report *transform.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if path == "" {
		fmt.Fprintln(fallback, string(data))
		return nil
	}
	return os.WriteFile(path, append(data, '\n'), 0o600)
}
