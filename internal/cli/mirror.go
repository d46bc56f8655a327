package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/BenjaminSRussell/sitemirror/internal/config"
	"github.com/BenjaminSRussell/sitemirror/internal/crawler"
	"github.com/BenjaminSRussell/sitemirror/internal/logger"
	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string
	outputDir  string
)

var mirrorCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Log in and mirror the site",
	Long: `Opens a browser for interactive login, discovers the site's internal pages
and writes content.md, document_links.txt, images and documents per page.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configFile, logLevel, outputDir)
		if err != nil {
			return err
		}

		log, err := logger.New(cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}

		m, err := crawler.NewFromConfig(cfg, log)
		if err != nil {
			return fmt.Errorf("failed to create mirror: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		results, err := m.Run(ctx)
		if err != nil {
			return fmt.Errorf("mirror failed: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Mirror finished in state %s\n", results.State)
		fmt.Fprintf(out, "Discovered: %d, Processed: %d, Failed: %d (panics: %d)\n",
			results.Discovered, results.Processed, results.Failed, results.Panics)
		fmt.Fprintf(out, "Images: %d, Documents: %d, Document links: %d\n",
			results.Images, results.Documents, results.DocumentLinks)

		return nil
	},
}

// loadConfig reads the config file and applies command line overrides
func loadConfig(path, level, output string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if level != "" {
		cfg.Log.Level = level
	}
	if output != "" {
		cfg.OutputDir = output
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func init() {
	mirrorCmd.Flags().StringVar(&configFile, "config", "", "YAML config file (defaults apply when omitted)")
	mirrorCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level override: debug/info/warn/error")
	mirrorCmd.Flags().StringVar(&outputDir, "output", "", "Output directory override")
}
