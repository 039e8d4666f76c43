package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"agentui/config"
	"agentui/ui"
)

// Version info set via ldflags at build time.
var (
	Version = "v0.1.0"
	License = "Apache-2.0"
)

// globalFlags are shared by every command and override file and env settings.
type globalFlags struct {
	server  string
	user    string
	token   string
	dataDir string
	debug   bool
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	cmd := &cobra.Command{
		Use:           "agentui",
		Short:         "Terminal chat client for AI agents",
		Long:          "agentui lists the agents a chat server offers and keeps one conversation with the selected agent in view.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(&flags)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.server, "server", "", "chat server base URL (overrides AGENTUI_SERVER)")
	pf.StringVar(&flags.user, "user", "", "local user id (overrides AGENTUI_USER_ID)")
	pf.StringVar(&flags.token, "token", "", "bearer token for the chat server (overrides AGENTUI_TOKEN)")
	pf.StringVar(&flags.dataDir, "data-dir", "", "data directory (overrides AGENTUI_DATA_DIR)")
	pf.BoolVar(&flags.debug, "debug", false, "write a JSON debug log to <data-dir>/debug.log")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newInitCmd(&flags))
	cmd.AddCommand(newAgentsCmd(&flags))
	cmd.AddCommand(newHistoryCmd(&flags))
	cmd.AddCommand(newSendCmd(&flags))
	cmd.AddCommand(newExportCmd(&flags))
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "agentui %s (%s)\n", Version, License)
		},
	}
}

func runTUI(flags *globalFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	// Missing server or user id: explain and exit instead of half-starting
	if err := cfg.Validate(); err != nil {
		hint := filepath.Join(cfg.DataDir(), "config.toml")
		errorModal := ui.NewErrorModal("Configuration Error", err.Error(), hint)
		p := tea.NewProgram(
			errorModal,
			tea.WithAltScreen(),
		)
		if _, err := p.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return nil
	}

	a, err := openApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.close()

	kb, err := config.LoadKeybindings(cfg.DataDir())
	if err != nil {
		a.log.Warn().Err(err).Msg("invalid keybindings, using defaults")
		kb = config.DefaultKeybindings()
	}

	p := tea.NewProgram(
		ui.NewAppView(a.session, kb, a.log, Version),
		tea.WithAltScreen(),
	)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running agentui: %w", err)
	}
	return nil
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
