package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"rule-chatbot-be/internal/config"
	"rule-chatbot-be/internal/pkg/logger"
	"rule-chatbot-be/internal/repository/memory"
	"rule-chatbot-be/pkg/conversation"
	"rule-chatbot-be/pkg/placeholder"
	"rule-chatbot-be/pkg/search"
	"rule-chatbot-be/pkg/textutil"
	"rule-chatbot-be/pkg/weather"
	"rule-chatbot-be/pkg/wikipedia"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const cliUserKey = "chatctl"

// offlineSearcher answers every lookup with an error result.
type offlineSearcher struct{}

func (offlineSearcher) Search(context.Context, string) *search.Result {
	return search.NewError("Recherche désactivée (mode hors ligne).", "")
}

func newAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [message...]",
		Short: "Send messages to the bot, one per argument, or read them from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			offline, _ := cmd.Flags().GetBool("offline")
			confirm, _ := cmd.Flags().GetBool("confirm")

			var weatherProvider placeholder.Provider
			var searcher search.Searcher = offlineSearcher{}
			if !offline {
				weatherProvider = weather.NewClient(weather.Options{
					BaseURL:   cfg.Weather.BaseURL,
					Latitude:  cfg.Weather.Latitude,
					Longitude: cfg.Weather.Longitude,
					City:      cfg.Weather.City,
					Timeout:   cfg.Weather.Timeout,
				})
				searcher = wikipedia.NewClient(cfg.Search.WikipediaURL, cfg.Search.UserAgent, cfg.Search.Timeout, logger.NewNopLogger())
			}
			table := placeholder.NewTable(nil, cfg.App.Location(), weatherProvider)

			base, err := newLoader(cmd, cfg, table).Load()
			if err != nil {
				color.Red("✗ %v", err)
				return err
			}

			interpreter := conversation.NewInterpreter(
				memory.NewSessionRepository(),
				placeholder.NewResolver(table),
				searcher,
				conversation.WithConfirmationFlow(confirm),
			)

			ask := func(message string) error {
				resp, err := interpreter.Interpret(cmd.Context(), cliUserKey, message, base)
				if err != nil {
					return err
				}
				printResponse(message, resp)
				return nil
			}

			if len(args) > 0 {
				for _, message := range args {
					if err := ask(message); err != nil {
						return err
					}
				}
				return nil
			}

			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				message := strings.TrimSpace(scanner.Text())
				if message == "" {
					continue
				}
				if err := ask(message); err != nil {
					return err
				}
			}
			return scanner.Err()
		},
	}
	cmd.Flags().Bool("offline", false, "Do not call Wikipedia or Open-Meteo")
	cmd.Flags().Bool("confirm", false, "Enable the yes/no confirmation of suggested articles")
	return cmd
}

func printResponse(message string, resp conversation.Response) {
	color.Cyan("> %s", message)

	if !resp.Structured() {
		fmt.Println(textutil.PlainText(resp.Text))
		printOutcome(resp)
		return
	}

	res := resp.Search
	if !res.Found() {
		color.Red("%s", textutil.PlainText(res.Message))
		if res.SearchURL != "" {
			fmt.Println(res.SearchURL)
		}
		printOutcome(resp)
		return
	}

	color.New(color.Bold).Println(res.Title)
	if res.Description != "" {
		color.New(color.Faint).Println(res.Description)
	}
	fmt.Println(res.Summary)
	fmt.Println(res.URL)
	for _, s := range res.Sections {
		fmt.Printf("  - %s\n", s.Title)
	}
	if res.Message != "" {
		color.Yellow("%s", textutil.PlainText(res.Message))
	}
	printOutcome(resp)
}

func printOutcome(resp conversation.Response) {
	label := string(resp.Outcome)
	if resp.MatchedID != "" {
		label += ":" + resp.MatchedID
	}
	color.New(color.Faint).Printf("[%s]\n\n", label)
}
