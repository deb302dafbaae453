package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dokzlo13/ledpanel/internal/app"
	"github.com/dokzlo13/ledpanel/internal/editor"
	"github.com/dokzlo13/ledpanel/internal/ledger"
	"github.com/dokzlo13/ledpanel/internal/schedule"
	"github.com/dokzlo13/ledpanel/internal/view"
)

var scheduleCmd = &cobra.Command{
	Use:     "schedule",
	Aliases: []string{"s"},
	Short:   "Show and edit the weekly schedule",
}

var scheduleListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List schedule entries",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			if err := a.ListSchedule(cmd.Context(), os.Stdout); err != nil {
				return err
			}
			if draft, ok, err := a.PendingDraft(); err == nil && ok {
				fmt.Printf("\nEdit of entry #%d failed at %s: %s\n", draft.Position+1, draft.SavedAt.Local().Format("2006-01-02 15:04"), draft.Error)
				fmt.Println(`Run "ledpanel schedule retry" to resubmit or "ledpanel schedule discard" to drop it.`)
			}
			return nil
		})
	},
}

var scheduleEditCmd = &cobra.Command{
	Use:   "edit <n>",
	Short: "Edit schedule entry n (as numbered by list)",
	Long: `Edit one schedule entry and save it back to the controller.

Examples:
  ledpanel schedule edit 2 --time 06:30 --toggle-day Sat
  ledpanel schedule edit 1 --room bedroom=on --room office=unset
  ledpanel schedule edit 3 --wemo Insight=toggle --sequence sequences/gradient_cools_20_repeat.png`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid entry number %q", args[0])
		}

		edits, err := editsFromFlags(cmd)
		if err != nil {
			return err
		}
		if len(edits) == 0 {
			return fmt.Errorf("nothing to change, see --help")
		}

		return withApp(func(a *app.App) error {
			if err := a.EditEntry(cmd.Context(), n, edits...); err != nil {
				return err
			}
			fmt.Printf("Entry #%d saved\n", n)
			return a.Services().List.Render(os.Stdout)
		})
	},
}

var scheduleToggleCmd = &cobra.Command{
	Use:   "toggle <n>",
	Short: "Enable or disable schedule entry n",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid entry number %q", args[0])
		}

		return withApp(func(a *app.App) error {
			enabled, err := a.ToggleEnabled(cmd.Context(), n)
			if err != nil {
				return err
			}
			fmt.Printf("Entry #%d %s\n", n, view.FormatEnabled(enabled))
			return nil
		})
	},
}

var scheduleRetryCmd = &cobra.Command{
	Use:   "retry",
	Short: "Resubmit the last failed edit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			if err := a.Retry(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Failed edit saved")
			return a.Services().List.Render(os.Stdout)
		})
	},
}

var scheduleDiscardCmd = &cobra.Command{
	Use:   "discard",
	Short: "Drop the last failed edit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app.App) error {
			return a.DiscardDraft()
		})
	},
}

var scheduleHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent schedule saves",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		return withApp(func(a *app.App) error {
			entries, err := a.History(limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No saves recorded")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tRESULT\tTIME\tDAYS\tERROR")
			for _, e := range entries {
				result := "saved"
				if e.EventType == ledger.EventScheduleSaveFailed {
					result = "failed"
				}
				errText, _ := e.Payload["error"].(string)
				timeText, _ := e.Payload["time"].(string)
				daysText, _ := e.Payload["days"].(string)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					e.Timestamp.Local().Format("2006-01-02 15:04:05"), result, timeText, daysText, errText)
			}
			return w.Flush()
		})
	},
}

func init() {
	scheduleHistoryCmd.Flags().Int("limit", 20, "Number of entries to show")

	scheduleEditCmd.Flags().String("time", "", "Time of day as HH:MM")
	scheduleEditCmd.Flags().StringSlice("toggle-day", nil, "Add or remove a weekday (Sun..Sat), repeatable")
	scheduleEditCmd.Flags().Bool("enabled", true, "Enable or disable the entry")
	scheduleEditCmd.Flags().StringArray("room", nil, "Room setting as room=on|off|unset, repeatable")
	scheduleEditCmd.Flags().StringArray("wemo", nil, "WeMo command as device=on|off|toggle|none, repeatable")
	scheduleEditCmd.Flags().String("sequence", "", "Sequence to play")
	scheduleEditCmd.Flags().Bool("clear-sequence", false, "Remove the sequence")

	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleEditCmd)
	scheduleCmd.AddCommand(scheduleToggleCmd)
	scheduleCmd.AddCommand(scheduleRetryCmd)
	scheduleCmd.AddCommand(scheduleDiscardCmd)
	scheduleCmd.AddCommand(scheduleHistoryCmd)
}

// editsFromFlags turns the edit flags into session edits, validating them
// before anything is fetched.
func editsFromFlags(cmd *cobra.Command) ([]app.Edit, error) {
	flags := cmd.Flags()
	var edits []app.Edit

	if flags.Changed("time") {
		raw, _ := flags.GetString("time")
		t, err := schedule.ParseTime(raw)
		if err != nil {
			return nil, err
		}
		edits = append(edits, func(s *editor.Session) error { return s.SetTime(t.Hour, t.Minute) })
	}

	days, _ := flags.GetStringSlice("toggle-day")
	for _, raw := range days {
		day, err := schedule.ParseWeekday(raw)
		if err != nil {
			return nil, err
		}
		edits = append(edits, func(s *editor.Session) error { return s.ToggleDay(day) })
	}

	if flags.Changed("enabled") {
		enabled, _ := flags.GetBool("enabled")
		edits = append(edits, func(s *editor.Session) error { return s.SetEnabled(enabled) })
	}

	rooms, _ := flags.GetStringArray("room")
	for _, raw := range rooms {
		key, value, ok := strings.Cut(raw, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --room %q, want room=on|off|unset", raw)
		}
		room, err := schedule.ParseRoom(key)
		if err != nil {
			return nil, err
		}
		setting, err := schedule.ParseRoomSetting(value)
		if err != nil {
			return nil, err
		}
		edits = append(edits, func(s *editor.Session) error { return s.SetRoom(room, setting) })
	}

	wemos, _ := flags.GetStringArray("wemo")
	for _, raw := range wemos {
		key, value, ok := strings.Cut(raw, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --wemo %q, want device=on|off|toggle|none", raw)
		}
		device, err := schedule.ParseWemo(key)
		if err != nil {
			return nil, err
		}
		if value == "none" {
			value = ""
		}
		command, err := schedule.ParseWemoCommand(value)
		if err != nil {
			return nil, err
		}
		edits = append(edits, func(s *editor.Session) error { return s.SetWemoCommand(device, command) })
	}

	if flags.Changed("sequence") && flags.Changed("clear-sequence") {
		return nil, fmt.Errorf("--sequence and --clear-sequence are exclusive")
	}
	if flags.Changed("sequence") {
		ref, _ := flags.GetString("sequence")
		edits = append(edits, func(s *editor.Session) error { return s.SetSequence(ref) })
	}
	if clear, _ := flags.GetBool("clear-sequence"); clear {
		edits = append(edits, func(s *editor.Session) error { return s.SetSequence("") })
	}

	return edits, nil
}
