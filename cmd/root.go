package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/agentic-research/tap-neon/internal/config"
	"github.com/agentic-research/tap-neon/internal/schema"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

var (
	configPath   string
	apiKey       string
	startDate    string
	baseURL      string
	schemaSource string
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Path to config file (.hcl, .json, .yaml)")
	pf.StringVar(&apiKey, "api-key", "", "Neon API key (overrides "+config.EnvAPIKey+")")
	pf.StringVar(&startDate, "start-date", "", "RFC 3339 start date")
	pf.StringVar(&baseURL, "base-url", "", "Neon API base URL")
	pf.StringVar(&schemaSource, "schema-source", "", "OpenAPI document: bundled, live, or a path")

	bindSyncFlags(rootCmd)
}

var rootCmd = &cobra.Command{
	Use:           "tap-neon",
	Short:         "Extract Neon projects, branches, endpoints and friends as Singer streams",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSyncCmd(cmd)
	},
}

// loadConfig resolves flags > environment > config file.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if apiKey != "" {
		cfg.APIKey = apiKey
	}
	if startDate != "" {
		cfg.StartDate = startDate
	}
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if schemaSource != "" {
		cfg.SchemaSource = schemaSource
	}
	return cfg, nil
}

// openResolver loads the configured API document. Relative document paths
// resolve against the working directory.
func openResolver(ctx context.Context, source string) (*schema.Resolver, error) {
	doc, err := schema.Load(ctx, source, osfs.New(""))
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	return schema.NewResolver(doc)
}

func userAgent() string {
	return "tap-neon/" + Version
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
