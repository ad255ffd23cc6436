package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/klauern/hookwarden/internal/condition"
	"github.com/urfave/cli/v3"
)

// NewEvalCmd creates the command that evaluates a condition against an event
func NewEvalCmd() *cli.Command {
	return &cli.Command{
		Name:      "eval",
		Usage:     "Evaluate a condition expression against a hook event",
		ArgsUsage: "EXPR",
		Description: `Evaluates EXPR with the same variables and functions rules see, using the
hook event from --input or stdin. Prints the value as JSON and whether it
would make a rule match.`,
		Flags: []cli.Flag{inputFlag()},
		Action: func(_ context.Context, cmd *cli.Command) error {
			args := cmd.Args().Slice()
			if len(args) != 1 {
				return fmt.Errorf("exactly one argument required: EXPR")
			}
			data, err := readEventDocument(cmd)
			if err != nil {
				return err
			}
			value, err := newDispatcher(cmd).Eval(args[0], data)
			if err != nil {
				return err
			}
			out, err := json.Marshal(value)
			if err != nil {
				out = []byte(fmt.Sprintf("%q", fmt.Sprint(value)))
			}
			w := stdout(cmd)
			fmt.Fprintf(w, "%s\n", out)
			fmt.Fprintf(w, "matches: %t\n", condition.Truthy(value))
			return nil
		},
	}
}
