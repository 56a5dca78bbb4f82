package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deepgram/catgpt/internal/render"
	"github.com/deepgram/catgpt/internal/services/expense"
)

func newExpensesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expenses",
		Short: "Submit and list expenses (kept in memory)",
		Long: `expenses starts an interactive form. "submit" asks for a description and
an amount, "list" shows every expense newest first, "quit" leaves. Nothing
is saved when the program exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return expensesLoop(expense.NewService(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func expensesLoop(svc *expense.Service, in io.Reader, out io.Writer) error {
	renderer := render.New(out)
	scanner := bufio.NewScanner(in)

	prompt := func(label string) (string, bool) {
		fmt.Fprintf(out, "%s: ", label)
		if !scanner.Scan() {
			return "", false
		}
		return scanner.Text(), true
	}

	fmt.Fprintln(out, "Commands: submit, list, quit")
	for {
		command, ok := prompt("expenses")
		if !ok {
			return scanner.Err()
		}

		switch strings.ToLower(strings.TrimSpace(command)) {
		case "":
			continue
		case "quit", "exit":
			return nil
		case "list", "view":
			renderer.Expenses(svc.List())
		case "submit", "add":
			desc, ok := prompt("Description")
			if !ok {
				return scanner.Err()
			}
			amount, ok := prompt("Amount")
			if !ok {
				return scanner.Err()
			}

			exp, err := svc.Submit(desc, amount)
			switch {
			case errors.Is(err, expense.ErrMissingField), errors.Is(err, expense.ErrInvalidAmount):
				fmt.Fprintf(out, "Not submitted: %v\n", err)
			case err != nil:
				return err
			default:
				renderer.Confirmation(exp.ID)
			}
		default:
			fmt.Fprintf(out, "Unknown command %q\n", command)
		}
	}
}
