package cli

import (
	"log"

	"bilgi-quiz-service/internal/app"
	"bilgi-quiz-service/internal/config"
	"bilgi-quiz-service/internal/seed"
	"github.com/spf13/cobra"
)

// NewSeedCmd loads the bundled question set into the configured store.
func NewSeedCmd(configPath *string) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the bundled questions into the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Store.Driver == config.DriverMemory {
				log.Println("memory store selected, seeded questions will not outlive this command")
			}
			b, err := openBackend(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			records, err := seed.Questions()
			if err != nil {
				return err
			}
			n, err := app.NewQuestionService(b.questions, nil).Seed(cmd.Context(), records, reset)
			if err != nil {
				return err
			}
			log.Printf("seeded %d questions", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "delete existing questions first")
	return cmd
}
