package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"agentui/chat"
	"agentui/config"
	"agentui/model"
	"agentui/transport"
)

func newInitCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the current settings to config.toml",
		Long:  "Persists the server, token and user id given by flags or environment into <data-dir>/config.toml, and creates keybindings.toml if missing. With --data-dir the directory is also recorded in settings.toml.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.SaveUserConfig(cfg.UserConfig(), cfg.DataDir()); err != nil {
				return err
			}
			if err := config.CreateDefaultKeybindings(cfg.DataDir()); err != nil {
				return err
			}
			// Remember a non-default data directory for runs without --data-dir
			if flags.dataDir != "" {
				if err := config.SaveSystemConfig(&config.SystemConfig{DataDirectory: cfg.DataDir()}); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", filepath.Join(cfg.DataDir(), "config.toml"))
			return nil
		},
	}
}

func newAgentsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List the agents the server offers",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openOneShot(flags)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.fetchAgents(); err != nil {
				return err
			}
			if a.session.AgentsStale {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s, showing cached agents\n", transport.Describe(a.session.AgentsErr))
			}
			printAgents(cmd.OutOrStdout(), a.session.Agents)
			return nil
		},
	}
}

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	var agentName string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the conversation with an agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openOneShot(flags)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.openConversation(agentName); err != nil {
				return err
			}
			records := a.session.Records()
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No messages yet.")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), model.TranscriptText(records))

			// A failed load leaves a single SYSTEM record in place of the history
			if len(records) == 1 && records[0].Origin == chat.OriginSystem {
				return fmt.Errorf("history not loaded: %s", records[0].Detail)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&agentName, "agent", "a", "", "agent id or name")
	_ = cmd.MarkFlagRequired("agent")
	return cmd
}

func newSendCmd(flags *globalFlags) *cobra.Command {
	var agentName string

	cmd := &cobra.Command{
		Use:   "send <message...>",
		Short: "Send one message to an agent and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openOneShot(flags)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.openConversation(agentName); err != nil {
				return err
			}

			before := len(a.session.Records())
			send, err := a.session.Submit(strings.Join(args, " "))
			if err != nil {
				return err
			}
			if send == nil {
				return fmt.Errorf("message is empty")
			}
			a.session.RunSync(send)

			records := a.session.Records()
			if len(records) > before {
				fmt.Fprint(cmd.OutOrStdout(), model.TranscriptText(records[before:]))
			}

			outcome := a.session.Conversation().Coordinator.LastOutcome()
			if outcome.State == model.SendFailed {
				return fmt.Errorf("message not delivered: %s", transport.Describe(outcome.Err))
			}
			if !outcome.AgentReplied {
				fmt.Fprintln(cmd.ErrOrStderr(), "Warning: agent returned an empty reply")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&agentName, "agent", "a", "", "agent id or name")
	_ = cmd.MarkFlagRequired("agent")
	return cmd
}

func newExportCmd(flags *globalFlags) *cobra.Command {
	var (
		agentName string
		output    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the conversation with an agent to JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openOneShot(flags)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.openConversation(agentName); err != nil {
				return err
			}

			export := a.session.ExportTranscript(config.ExpandPath(output))
			if export == nil {
				return fmt.Errorf("no conversation to export")
			}
			msg, ok := export().(model.TranscriptExportedMsg)
			if !ok {
				return fmt.Errorf("unexpected export result")
			}
			a.session.Update(msg)
			if msg.Err != nil {
				return msg.Err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d messages to %s\n", len(a.session.Records()), msg.Path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&agentName, "agent", "a", "", "agent id or name")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: timestamped file in ~/Downloads)")
	_ = cmd.MarkFlagRequired("agent")
	return cmd
}

func openOneShot(flags *globalFlags) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	return openApp(cfg, true)
}

// fetchAgents loads the directory. A cached fallback is not an error.
func (a *app) fetchAgents() error {
	a.session.RunSync(a.session.FetchAgents())
	if a.session.AgentsErr != nil && !a.session.AgentsStale {
		return fmt.Errorf("failed to load agents: %s", transport.Describe(a.session.AgentsErr))
	}
	return nil
}

// openConversation selects idOrName and loads its history.
func (a *app) openConversation(idOrName string) error {
	if err := a.fetchAgents(); err != nil {
		// Cached agents may still resolve the name
		a.log.Warn().Err(err).Msg("agent directory unavailable")
	}
	agent, ok := a.session.FindAgent(idOrName)
	if !ok {
		return fmt.Errorf("agent %q not found", idOrName)
	}
	a.session.RunSync(a.session.SelectAgent(agent))
	return nil
}

func printAgents(w io.Writer, agents []model.Agent) {
	if len(agents) == 0 {
		fmt.Fprintln(w, "No agents available.")
		return
	}
	idWidth := 2
	for _, agent := range agents {
		if len(agent.ID) > idWidth {
			idWidth = len(agent.ID)
		}
	}
	fmt.Fprintf(w, "%-*s  %s\n", idWidth, "ID", "NAME")
	for _, agent := range agents {
		fmt.Fprintf(w, "%-*s  %s\n", idWidth, agent.ID, agent.DisplayName())
	}
}
