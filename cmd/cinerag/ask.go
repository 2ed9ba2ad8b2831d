package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one question from the terminal",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	answer, err := app.service.AnswerQuestion(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	cmd.Println(answer)
	return nil
}
