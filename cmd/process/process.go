// Package process runs the statement pipeline once over local files
// and prints the resulting session as JSON.
package process

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"finsight/statement-hub/cmd/root"
	"finsight/statement-hub/internal/classifier"
	"finsight/statement-hub/internal/docadapter"
	"finsight/statement-hub/internal/pipeline"
)

// Cmd represents the process command.
var Cmd = &cobra.Command{
	Use:   "process <file> [file ...]",
	Short: "Process statement files locally and print the result",
	Long:  `Run the full pipeline over local CSV and PDF statement files without starting the server.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  processFunc,
}

func processFunc(cmd *cobra.Command, args []string) error {
	cfg := root.Cfg
	logger := root.Logger()

	cls, err := classifier.New(logger)
	if err != nil {
		return err
	}

	processor := pipeline.New(cls, pipeline.Options{
		Workers: cfg.Pipeline.Workers,
		DocParser: docadapter.NewTableExtractor(
			cfg.Pipeline.PageCap, cfg.Pipeline.RowCap, logger),
	}, logger)

	var files []pipeline.InputFile
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read '%s': %w", path, err)
		}
		files = append(files, pipeline.InputFile{Name: path, Data: data})
	}

	result, err := processor.Process(cmd.Context(), files)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
