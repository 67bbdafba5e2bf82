// Package cli implements the granite command-line client. Every command is
// a thin wrapper over the SDK in pkg/client; nothing here talks to storage
// directly.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/granite-grc/granite/pkg/client"
)

// rootOptions carries the persistent flags shared by every subcommand.
type rootOptions struct {
	serverAddr string
	timeout    time.Duration
	jsonOutput bool
}

func (o *rootOptions) newClient() *client.Client {
	return client.New(o.serverAddr)
}

// NewRootCommand builds the granite CLI command tree.
func NewRootCommand(version string) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "granite",
		Short:         "Client for the granite risk engine",
		Long:          "Query risk scores, compliance findings and similarity scans from a running granite api server.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.serverAddr, "server", "http://localhost:8080", "base URL of the api server")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 60*time.Second, "overall request timeout")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "print raw JSON instead of a summary")

	root.AddCommand(
		newScoreCommand(opts),
		newComplianceCommand(opts),
		newScanCommand(opts),
		newCheckCommand(opts),
	)
	return root
}

// printJSON renders v as indented JSON on w.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// severityGlyph marks a finding severity for the table output.
func severityGlyph(severity string) string {
	switch severity {
	case "NON_CONFORMANCE":
		return "✗"
	case "RECOMMENDATION":
		return "!"
	default:
		return "✓"
	}
}

func printf(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, format, args...)
}
