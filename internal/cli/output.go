package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	green  = color.New(color.FgGreen, color.Bold)
	yellow = color.New(color.FgYellow)
)

func success(cmd *cobra.Command, format string, args ...any) {
	green.Fprint(cmd.OutOrStdout(), "Success: ")
	fmt.Fprintf(cmd.OutOrStdout(), format+"\n", args...)
}

func warn(cmd *cobra.Command, format string, args ...any) {
	yellow.Fprint(cmd.OutOrStdout(), "Warning: ")
	fmt.Fprintf(cmd.OutOrStdout(), format+"\n", args...)
}

// table renders rows (header first) with pterm.
func table(cmd *cobra.Command, rows [][]string) error {
	if len(rows) == 1 {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), "No rows.")
		return err
	}
	out, err := pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData(rows)).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}

// PrintError writes err to stderr in red.
func PrintError(cmd *cobra.Command, err error) {
	color.New(color.FgRed, color.Bold).Fprint(cmd.ErrOrStderr(), "Error: ")
	fmt.Fprintln(cmd.ErrOrStderr(), err)
}
