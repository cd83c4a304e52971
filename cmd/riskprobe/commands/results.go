package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/bl4ck0w1/riskprobe/internal/storage"
	"github.com/bl4ck0w1/riskprobe/pkg/models"
	"github.com/bl4ck0w1/riskprobe/pkg/utils"
)

func NewResultsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Inspect stored scan results",
	}
	cmd.AddCommand(newResultsListCommand())
	cmd.AddCommand(newResultsShowCommand())
	cmd.AddCommand(newResultsDeleteCommand())
	cmd.AddCommand(newResultsCleanupCommand())
	return cmd
}

func openRepository() (*storage.Repository, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := logrus.StandardLogger()
	local, err := storage.NewLocalStorage(cfg.Storage.Directory, cfg.Storage.Compress, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return storage.NewRepository(local, 0, logger), nil
}

func newResultsListCommand() *cobra.Command {
	var (
		target string
		status string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored results, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			repository, err := openRepository()
			if err != nil {
				return err
			}

			var results []*models.ScanResult
			switch {
			case target != "":
				results, err = repository.FindByTarget(cmd.Context(), target)
			case status != "":
				results, err = repository.FindByStatus(cmd.Context(), models.ScanStatus(status))
			default:
				results, err = repository.ListAll(cmd.Context())
			}
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SCAN ID\tTARGET\tSTATUS\tSCORE\tFINDINGS\tWHEN")
			for _, result := range results {
				score := "-"
				if result.RiskAssessment != nil {
					score = fmt.Sprintf("%d", result.RiskAssessment.OverallScore)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
					result.ScanID, utils.TruncateString(result.Target, 40), result.Status, score,
					len(result.Findings), result.Timestamp.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "only results for this target")
	cmd.Flags().StringVar(&status, "status", "", "only results with this status (COMPLETE, PARTIAL, FAILED)")
	return cmd
}

func newResultsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [scan-id]",
		Short: "Print one stored result as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repository, err := openRepository()
			if err != nil {
				return err
			}
			result, err := repository.FindByScanID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}
}

func newResultsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [scan-id]",
		Short: "Delete one stored result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repository, err := openRepository()
			if err != nil {
				return err
			}
			if err := repository.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted result %s\n", args[0])
			return nil
		},
	}
}

func newResultsCleanupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove results past the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			repository, err := openRepository()
			if err != nil {
				return err
			}
			removed, err := repository.Cleanup(time.Duration(cfg.Storage.RetentionDays) * 24 * time.Hour)
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d expired results\n", removed)
			return nil
		},
	}
}
