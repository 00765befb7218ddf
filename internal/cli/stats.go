package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"bilgi-quiz-service/internal/app"
	"bilgi-quiz-service/internal/config"
	"bilgi-quiz-service/internal/export"
	"github.com/spf13/cobra"
)

// NewStatsCmd groups the statistics maintenance subcommands.
func NewStatsCmd(configPath *string) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Inspect, reset or export a user's statistics",
	}
	cmd.PersistentFlags().StringVar(&userID, "user", "", "user ID (default user when empty)")

	withService := func(cmd *cobra.Command, fn func(*app.StatisticsService) error) error {
		cfg, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		b, err := openBackend(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer b.Close()
		return fn(app.NewStatisticsService(b.statistics, nil))
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the statistics overview as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(s *app.StatisticsService) error {
				overview, err := s.Overview(cmd.Context(), userID)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(overview)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Reset statistics to zero",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(s *app.StatisticsService) error {
				_, err := s.Reset(cmd.Context(), userID)
				return err
			})
		},
	})

	var out string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write statistics to an xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(s *app.StatisticsService) error {
				st, err := s.Get(cmd.Context(), userID)
				if err != nil {
					return err
				}
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				if err := export.WriteStatistics(f, st); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
				return nil
			})
		},
	}
	exportCmd.Flags().StringVar(&out, "out", "statistics.xlsx", "output file")
	cmd.AddCommand(exportCmd)
	return cmd
}
