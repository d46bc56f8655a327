package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sitemirror",
	Short: "Mirror a login-protected site to local text and files",
	Long: `sitemirror logs in to a document site through a real browser, discovers its
internal pages and saves each one as flattened text with its images and
attached documents.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(mirrorCmd)
	rootCmd.AddCommand(exportCmd)
}
