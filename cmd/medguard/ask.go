package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/ternarybob/medguard/internal/app"
	"github.com/ternarybob/medguard/internal/services/assistant"
	"github.com/ternarybob/medguard/internal/services/report"
)

var askCmd = &cobra.Command{
	Use:   "ask [file] [question]",
	Short: "Ask the assistant about a document",
	Long:  "Loads a document into a session and answers a question about its sanitized record.\nWithout a question, questions are read from stdin one per line until EOF or \"exit\".",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runAsk,
}

var askReport string

func init() {
	askCmd.Flags().StringVar(&askReport, "report", "", "Write a PDF report of the session to this path on exit")
}

func runAsk(cmd *cobra.Command, args []string) error {
	doc, err := readDocument(args[0])
	if err != nil {
		return err
	}

	pipeline, err := app.NewPipeline(config, logger)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	ctx := cmd.Context()
	session, cc, err := pipeline.ChatService.LoadDocument(ctx, "", doc)
	if err != nil {
		return err
	}

	risk := cc.Risk()
	fmt.Printf("Risk: %s - %s\n", risk.Tier, risk.Action)
	if cc.Degraded() {
		fmt.Println("Warning: entity recognition was unavailable, only rule-based redaction was applied")
	}

	answer := func(question string) error {
		fragments, err := pipeline.ChatService.Ask(ctx, session.ID(), question)
		if err != nil {
			return err
		}
		for f := range fragments {
			if f.Kind == assistant.FragmentError {
				fmt.Fprintf(os.Stderr, "\n%s", f.Text)
				continue
			}
			fmt.Print(f.Text)
		}
		fmt.Println()
		return nil
	}

	if len(args) == 2 {
		if err := answer(args[1]); err != nil {
			return err
		}
	} else {
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Print("> ")
		for scanner.Scan() {
			question := strings.TrimSpace(scanner.Text())
			if question == "exit" || question == "quit" {
				break
			}
			if question != "" {
				if err := answer(question); err != nil {
					fmt.Fprintln(os.Stderr, err)
				}
			}
			fmt.Print("> ")
		}
		if err := scanner.Err(); err != nil {
			return err
		}
	}

	if askReport == "" {
		return nil
	}
	current, _, err := session.Context()
	if err != nil {
		return err
	}
	s := report.Session{Context: current, History: session.History(), Institution: config.Report.Institution, GeneratedAt: time.Now().UTC()}
	pdf, err := pipeline.ReportRenderer.Render(report.Markdown(s), s.Title())
	if err != nil {
		return err
	}
	return writeOutput(pdf, askReport)
}
