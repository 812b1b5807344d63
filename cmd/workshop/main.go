// Command workshop runs the multi-agent chat orchestrator. The serve
// subcommand starts the HTTP API; chat starts an interactive local REPL
// against the same engine.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	workshop "github.com/nhcloud/agentframework-workshop-sub001"
	"github.com/nhcloud/agentframework-workshop-sub001/chat"
	"github.com/nhcloud/agentframework-workshop-sub001/pkg/config"
)

const version = "0.3.0"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "workshop",
		Short:        "Multi-agent chat orchestrator",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Printf("Starting workshop orchestrator v%s", version)
			return workshop.Run(configPath)
		},
	}

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the agents interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(cmd.Context(), configPath)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("workshop v%s\n", version)
		},
	}

	rootCmd.AddCommand(serveCmd, chatCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runREPL drives the orchestration engine directly from a terminal loop,
// keeping a single session across turns.
func runREPL(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	app, err := workshop.NewApp(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Sessions.Close(); err != nil {
			log.Printf("closing session store: %v", err)
		}
	}()

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Println("Agents:", strings.Join(app.Registry.List(), ", "))
	fmt.Println("Type a message, or /quit to exit.")

	var sessionID string
	for {
		input, err := line.Prompt("> ")
		if err != nil {
			// Ctrl-C or EOF ends the session.
			fmt.Println()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if input == "/quit" || input == "/exit" {
			return nil
		}
		line.AppendHistory(input)

		result, err := app.Engine.Orchestrate(ctx, &chat.Request{
			Message:   input,
			SessionID: sessionID,
		})
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		sessionID = result.SessionID

		content, err := app.Engine.Assembler().Synthesize(ctx, result.Turns)
		if err != nil {
			// Fall back to showing each agent turn.
			for _, turn := range result.Turns {
				if turn.Agent == chat.UserAgent {
					continue
				}
				fmt.Printf("[%s] %s\n", turn.Agent, turn.Content)
			}
			continue
		}
		fmt.Printf("(%s, %d agents)\n%s\n", result.Mode, result.AgentCount, content)
	}
}
