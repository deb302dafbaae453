package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dokzlo13/ledpanel/internal/app"
	"github.com/dokzlo13/ledpanel/internal/sequence"
)

var sequencesCmd = &cobra.Command{
	Use:     "sequences",
	Aliases: []string{"seq"},
	Short:   "List and play recorded sequences",
}

var sequencesListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List recorded sequences",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			refs, err := a.Services().Client.ListSequences(cmd.Context())
			if err != nil {
				return err
			}
			if len(refs) == 0 {
				fmt.Println("No sequences recorded")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "#\tNAME\tKIND\tDURATION\tREPEAT\tREF")
			for i, ref := range refs {
				info := sequence.Parse(ref)
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", i+1, info.Name, dash(info.Kind), dash(info.Duration), dash(info.Repeat), ref)
			}
			return w.Flush()
		})
	},
}

var sequencesPlayCmd = &cobra.Command{
	Use:   "play <ref|n>",
	Short: "Play a sequence by reference or by its number in list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			client := a.Services().Client
			ref := args[0]

			if n, err := strconv.Atoi(ref); err == nil {
				refs, err := client.ListSequences(cmd.Context())
				if err != nil {
					return err
				}
				if n < 1 || n > len(refs) {
					return fmt.Errorf("no sequence #%d (%d recorded)", n, len(refs))
				}
				ref = refs[n-1]
			}

			if err := client.ActivateSequence(cmd.Context(), ref); err != nil {
				return err
			}
			fmt.Printf("Playing %s\n", sequence.DisplayName(ref))
			return nil
		})
	},
}

func init() {
	sequencesCmd.AddCommand(sequencesListCmd)
	sequencesCmd.AddCommand(sequencesPlayCmd)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
