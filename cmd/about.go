package cmd

import (
	"encoding/json"
	"io"

	"github.com/agentic-research/tap-neon/internal/config"
	"github.com/agentic-research/tap-neon/internal/streams"
	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"
)

type aboutInfo struct {
	Name         string             `json:"name"`
	Version      string             `json:"version"`
	Capabilities []string           `json:"capabilities"`
	Streams      []string           `json:"streams"`
	Settings     *jsonschema.Schema `json:"settings"`
}

var aboutCmd = &cobra.Command{
	Use:   "about",
	Short: "Describe the connector, its streams and its settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAbout(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(aboutCmd)
}

func runAbout(out io.Writer) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(aboutInfo{
		Name:         "tap-neon",
		Version:      Version,
		Capabilities: []string{"discover", "about"},
		Streams:      streams.Names(),
		Settings:     config.JSONSchema(),
	})
}
