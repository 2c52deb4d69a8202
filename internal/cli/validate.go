package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"quizroom/internal/config"
)

// NewValidateCmd checks a seed file without starting the server.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <seed.yaml>",
		Short: "Validate a quiz seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateSeed(cmd.OutOrStdout(), args[0])
		},
	}
}

func validateSeed(out io.Writer, path string) error {
	quizzes, err := config.LoadSeed(path)
	if err != nil {
		return err
	}
	for _, quiz := range quizzes {
		fmt.Fprintf(out, "ok  %-30s %d question(s)\n", quiz.Title, len(quiz.Questions))
	}
	fmt.Fprintf(out, "%d quiz(zes) valid\n", len(quizzes))
	return nil
}
