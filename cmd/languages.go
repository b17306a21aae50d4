package main

import (
	"fmt"
	"strings"

	"github.com/MimeLyc/trxsrt/internal/language"
	"github.com/spf13/cobra"
)

func newLanguagesCommand() *cobra.Command {
	var codesOnly bool

	cmd := &cobra.Command{
		Use:     "languages [filter]",
		Aliases: []string{"langs"},
		Short:   "List supported languages",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := ""
			if len(args) == 1 {
				filter = strings.ToLower(strings.TrimSpace(args[0]))
			}

			out := cmd.OutOrStdout()
			if codesOnly {
				fmt.Fprintln(out, strings.Join(language.Codes(), "\n"))
				return nil
			}

			rows := make([][]string, 0)
			for _, l := range language.All() {
				if filter != "" &&
					!strings.Contains(strings.ToLower(l.Name), filter) &&
					!strings.HasPrefix(strings.ToLower(l.Code), filter) {
					continue
				}
				rows = append(rows, []string{l.Code, l.Name, l.NativeName()})
			}
			if len(rows) == 0 {
				return fmt.Errorf("no supported language matches %q", filter)
			}

			fmt.Fprintln(out, renderTable([]string{"Code", "Name", "Native"}, rows, nil))
			fmt.Fprintf(out, "%d languages\n", len(rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&codesOnly, "codes", false, "Print only the language codes, one per line")
	return cmd
}
