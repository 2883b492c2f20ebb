package cmd

import (
	"context"
	"encoding/json"
	"io"

	"github.com/agentic-research/tap-neon/internal/streams"
	"github.com/spf13/cobra"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Print the stream catalog with normalized schemas",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runDiscover(cmd.Context(), cfg.SchemaSource, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}

// runDiscover needs no credentials: discovery only reads the API document.
func runDiscover(ctx context.Context, source string, out io.Writer) error {
	resolver, err := openResolver(ctx, source)
	if err != nil {
		return err
	}
	catalog, err := streams.Discover(resolver)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(catalog)
}
