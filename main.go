package main

import (
	"fmt"
	"os"
	"runtime"

	"mozuku/internal/server"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

// Version will be set during the build process using ldflags
var Version = "(dev) v0.0.0"

var (
	verbosity int
	logfile   string
)

var rootCmd = &cobra.Command{
	Use:   "mozuku",
	Short: "Japanese proofreading language server",
	Long: `mozuku checks Japanese prose in Markdown, LaTeX, HTML and source code
comments. Without a subcommand it serves the language server protocol on
stdio.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
	RunE:              runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the language server over stdio",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "mozuku version %s\n", Version)
	},
}

func main() {
	rootCmd.Version = Version
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity")
	rootCmd.PersistentFlags().StringVar(&logfile, "logfile", "", "path to log file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setupLogging routes commonlog, the logger glsp uses, away from stdout.
// Without a log file only warnings and worse reach stderr.
func setupLogging(cmd *cobra.Command, _ []string) error {
	if logfile != "" {
		commonlog.Configure(verbosity+3, &logfile)
		return nil
	}
	commonlog.Configure(verbosity+1, nil)
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	// 4 Cores
	runtime.GOMAXPROCS(4)

	s := server.New(server.Options{Version: Version})
	if err := s.RunStdio(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
