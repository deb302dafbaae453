package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dokzlo13/ledpanel/internal/app"
	"github.com/dokzlo13/ledpanel/internal/config"
	"github.com/dokzlo13/ledpanel/internal/logging"
)

var (
	cfgFile    string
	controller string
)

var rootCmd = &cobra.Command{
	Use:   "ledpanel",
	Short: "ledpanel - control panel for the LED lighting controller",
	Long: `ledpanel edits the weekly lighting schedule of an LED controller,
plays recorded sequences and sets solid colors.

Schedule edits are made one entry at a time and written back as a full
replacement. A failed save is kept and can be resubmitted with
"ledpanel schedule retry".`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(sequencesCmd)
	rootCmd.AddCommand(colorCmd)

	if err := rootCmd.ExecuteContext(app.SignalContext()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&controller, "controller", "", "Controller URL (overrides controller.url)")
}

// loadConfig reads the config file (defaults when absent), applies flag
// overrides and sets up logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if controller != "" {
		cfg.Controller.URL = controller
	}

	logging.Setup(cfg.Log.Level, cfg.Log.JSON, cfg.Log.Colors)
	return cfg, nil
}

// withApp runs fn with a fully wired application and closes it afterwards.
func withApp(fn func(a *app.App) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(a)
}
