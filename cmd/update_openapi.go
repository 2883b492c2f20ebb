package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/agentic-research/tap-neon/internal/schema"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/spf13/cobra"
)

var openAPIURL string

var updateOpenAPICmd = &cobra.Command{
	Use:   "update-openapi [path]",
	Short: "Download the Neon OpenAPI document and store it indented",
	Long: "Download the Neon OpenAPI document and store it indented.\n" +
		"The default path is the bundled document, " + schema.BundledPath + ".",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := schema.BundledPath
		if len(args) == 1 {
			path = args[0]
		}
		return runUpdateOpenAPI(cmd.Context(), osfs.New(""), openAPIURL, path, cmd.ErrOrStderr())
	},
}

func init() {
	updateOpenAPICmd.Flags().StringVar(&openAPIURL, "url", schema.OpenAPIURL, "OpenAPI document URL")
	rootCmd.AddCommand(updateOpenAPICmd)
}

func runUpdateOpenAPI(ctx context.Context, fs billy.Filesystem, url, path string, report io.Writer) error {
	raw, err := schema.FetchBytes(ctx, url)
	if err != nil {
		return err
	}
	// Refuse to overwrite the stored document with something unusable.
	doc, err := schema.Parse(raw)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("indent openapi document: %w", err)
	}
	buf.WriteByte('\n')

	if err := util.WriteFile(fs, path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	_, _ = fmt.Fprintf(report, "Wrote %s (%d schemas).\n", path, len(doc.Names()))
	return nil
}
