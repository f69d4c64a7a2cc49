// ABOUTME: Root command and global flags for the sitechat CLI
// ABOUTME: Registers every subcommand and shared output settings
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
	configPath   string
)

const banner = `
███████╗██╗████████╗███████╗ ██████╗██╗  ██╗ █████╗ ████████╗
██╔════╝██║╚══██╔══╝██╔════╝██╔════╝██║  ██║██╔══██╗╚══██╔══╝
███████╗██║   ██║   █████╗  ██║     ███████║███████║   ██║
╚════██║██║   ██║   ██╔══╝  ██║     ██╔══██║██╔══██║   ██║
███████║██║   ██║   ███████╗╚██████╗██║  ██║██║  ██║   ██║
╚══════╝╚═╝   ╚═╝   ╚══════╝ ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝`

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitechat",
		Short: "Retrieval-augmented chat over your own website",
		Long: banner + `

Sitechat scrapes the pages of a portfolio site, splits them into
overlapping chunks, embeds them, and stores the vectors in an index.
The chat assistant retrieves the closest chunks for every question
and answers with that context in its system prompt.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch outputFormat {
			case "auto", "json", "table":
				return nil
			}
			return fmt.Errorf("unknown --format %q (want auto, json, or table)", outputFormat)
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only print errors and results")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto, json, or table")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML or JSON config file")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(NewIngestCmd())
	cmd.AddCommand(NewSearchCmd())
	cmd.AddCommand(NewAskCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewIndexCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
