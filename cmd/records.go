package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/agentic-research/tap-neon/internal/sink"
	"github.com/spf13/cobra"
)

var recordsCounts bool

var recordsCmd = &cobra.Command{
	Use:   "records <db> [stream]",
	Short: "Print the records of a stream stored in a SQLite output",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if recordsCounts || len(args) == 1 {
			return runRecordCounts(args[0], cmd.OutOrStdout())
		}
		return runRecords(args[0], args[1], cmd.OutOrStdout())
	},
}

func init() {
	recordsCmd.Flags().BoolVar(&recordsCounts, "counts", false, "Print per-stream record counts instead")
	rootCmd.AddCommand(recordsCmd)
}

// runRecords prints one JSON object per line.
func runRecords(dbPath, stream string, out io.Writer) error {
	enc := json.NewEncoder(out)
	return sink.StreamSQLite(dbPath, stream, func(key string, record map[string]any) error {
		return enc.Encode(record)
	})
}

func runRecordCounts(dbPath string, out io.Writer) error {
	counts, err := sink.StreamCounts(dbPath)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := fmt.Fprintf(out, "%s\t%d\n", name, counts[name]); err != nil {
			return err
		}
	}
	return nil
}
