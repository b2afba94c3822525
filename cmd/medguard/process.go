package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/ternarybob/medguard/internal/app"
	"github.com/ternarybob/medguard/internal/models"
	"github.com/ternarybob/medguard/internal/services/report"
)

var processCmd = &cobra.Command{
	Use:   "process [file]",
	Short: "Process one document and print the sanitized consultation",
	Long:  `Runs extraction, redaction, risk grading and protocol lookup on a PDF or text file ("-" reads stdin). Only sanitized output is written.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runProcess,
}

var (
	processFormat string
	processOutput string
)

func init() {
	processCmd.Flags().StringVarP(&processFormat, "format", "f", "json", "Output format: json, md or pdf")
	processCmd.Flags().StringVarP(&processOutput, "out", "o", "", "Write output to a file instead of stdout")
}

// readDocument loads a document argument; "-" reads text from stdin
func readDocument(path string) (models.RawDocument, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return models.RawDocument{}, fmt.Errorf("failed to read stdin: %w", err)
		}
		return models.RawDocument{Data: data, MediaType: models.MediaTypeText}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return models.RawDocument{}, fmt.Errorf("failed to read document: %w", err)
	}
	mediaType, ok := models.DetectMediaType("", path, data)
	if !ok {
		// unknown extensions are treated as notes
		mediaType = models.MediaTypeText
	}
	return models.RawDocument{Data: data, MediaType: mediaType, Filename: path}, nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	doc, err := readDocument(args[0])
	if err != nil {
		return err
	}

	pipeline, err := app.NewPipeline(config, logger)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	cc, err := pipeline.Builder.BuildFromDocument(cmd.Context(), doc)
	if err != nil {
		return err
	}

	var out []byte
	switch processFormat {
	case "json":
		out, err = json.MarshalIndent(cc.Summary(), "", "  ")
		out = append(out, '\n')
	case "md", "pdf":
		s := report.Session{Context: cc, Institution: config.Report.Institution, GeneratedAt: time.Now().UTC()}
		md := report.Markdown(s)
		if processFormat == "md" {
			out = []byte(md)
		} else {
			out, err = pipeline.ReportRenderer.Render(md, s.Title())
		}
	default:
		return fmt.Errorf("unknown format %q", processFormat)
	}
	if err != nil {
		return err
	}

	return writeOutput(out, processOutput)
}

func writeOutput(out []byte, path string) error {
	if path == "" {
		_, err := os.Stdout.Write(out)
		return err
	}
	if err := os.WriteFile(path, out, 0600); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	logger.Info().Str("path", path).Int("bytes", len(out)).Msg("Output written")
	return nil
}
