package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/smithcommajoseph/async-transport/internal/config"
	"github.com/smithcommajoseph/async-transport/pkg/domain"
)

// errHasErrors is returned by run --fail-on-errors when any step failed
var errHasErrors = errors.New("batch finished with errors")

func newRunCmd() *cobra.Command {
	var (
		file         string
		strategy     string
		failOnErrors bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a batch file once and print its result as JSON",
		Example: `  asynctransport run -f batch.yaml
  asynctransport run -f batch.yaml --strategy serial`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				return fmt.Errorf("batch file is required (use --file)")
			}

			req, err := loadBatch(file)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("strategy") {
				req.Strategy = strategy
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			inv, err := runBatch(cmd, cfg, req)
			if err != nil {
				return err
			}
			if err := writeResult(cmd.OutOrStdout(), inv); err != nil {
				return err
			}

			if inv.Status == domain.InvocationStatusFailed {
				return fmt.Errorf("invocation failed: %s", inv.Error)
			}
			if failOnErrors && inv.Result != nil && inv.Result.HasErrors {
				return errHasErrors
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the batch file (YAML or JSON)")
	cmd.Flags().StringVar(&strategy, "strategy", "", "Override the batch strategy (parallel or serial)")
	cmd.Flags().BoolVar(&failOnErrors, "fail-on-errors", false, "Exit non-zero when any step failed")

	return cmd
}

// runBatch runs req synchronously over in-memory adapters
func runBatch(cmd *cobra.Command, cfg *config.Config, req *domain.BatchRequest) (*domain.Invocation, error) {
	logger := initLogger(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	comps, err := newComponents(ctx, cfg, logger, false)
	if err != nil {
		return nil, err
	}
	defer comps.close(logger)

	req.Async = false
	manager := comps.newManager(cfg, nil, logger)
	return manager.Submit(ctx, req)
}

// loadBatch reads a batch file. JSON is a subset of YAML, so both parse.
func loadBatch(path string) (*domain.BatchRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	var req domain.BatchRequest
	if err := yaml.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse batch file: %w", err)
	}
	return &req, nil
}

// writeResult prints the invocation result as indented JSON
func writeResult(w io.Writer, inv *domain.Invocation) error {
	out := struct {
		InvocationID string                  `json:"invocation_id"`
		Strategy     string                  `json:"strategy"`
		Status       domain.InvocationStatus `json:"status"`
		Result       any                     `json:"result"`
		Error        string                  `json:"error,omitempty"`
	}{
		InvocationID: inv.ID,
		Strategy:     string(inv.Strategy),
		Status:       inv.Status,
		Error:        inv.Error,
	}
	if inv.Result != nil {
		out.Result = inv.Result
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
