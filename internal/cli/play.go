package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"mathquiz/internal/config"
	"mathquiz/internal/domain"
	"mathquiz/internal/tui"
)

// NewPlayCmd builds the terminal quiz runner.
func NewPlayCmd(configPath *string) *cobra.Command {
	var (
		grade      int
		topic      string
		difficulty string
		count      int
		kind       string
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Run a quiz attempt in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			st, err := buildStack(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.cleanup()

			req := st.service.Resolve(domain.BatchRequest{
				Grade:      grade,
				Topic:      topic,
				Difficulty: domain.Difficulty(difficulty),
				Count:      count,
				Kind:       domain.QuestionKind(kind),
			})

			session := st.service.Open()
			defer st.service.Close(session.ID())

			// Focus reporting feeds the visibility monitor: losing terminal
			// focus force-terminates the attempt.
			program := tea.NewProgram(
				tui.NewModel(session, req),
				tea.WithAltScreen(),
				tea.WithReportFocus(),
			)
			_, err = program.Run()
			return err
		},
	}

	cmd.Flags().IntVar(&grade, "grade", 0, "school grade (6-9)")
	cmd.Flags().StringVar(&topic, "topic", "", "math topic")
	cmd.Flags().StringVar(&difficulty, "difficulty", "", "easy, medium or hard")
	cmd.Flags().IntVar(&count, "count", 0, "number of questions (max 5)")
	cmd.Flags().StringVar(&kind, "kind", "", "MULTIPLE_CHOICE, TRUE_FALSE or MIXED")
	return cmd
}
