package cli

import (
	"fmt"

	"github.com/BenjaminSRussell/sitemirror/internal/config"
	"github.com/BenjaminSRussell/sitemirror/internal/export"
	"github.com/spf13/cobra"
)

var (
	exportDir    string
	exportFormat string
	exportFile   string
	manifestName string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the run manifest",
	Long:  `Export the pages recorded in a mirror's manifest as JSON, CSV or an XML sitemap`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file := exportFile
		if file == "" {
			file = defaultExportFile(exportFormat)
		}

		exporter, err := export.NewExporter(exportDir, manifestName)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		defer exporter.Close()

		count, err := exporter.Export(exportFormat, file)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Exported %d pages to %s\n", count, file)

		stats, err := exporter.Stats()
		if err != nil {
			return fmt.Errorf("failed to read manifest totals: %w", err)
		}
		fmt.Fprintf(out, "Manifest: %d pages (%d ok, %d failed), %d artifacts\n",
			stats["total_pages"], stats["ok_pages"], stats["failed_pages"], stats["artifacts"])
		return nil
	},
}

func defaultExportFile(format string) string {
	switch format {
	case export.FormatCSV:
		return "pages.csv"
	case export.FormatSitemap:
		return "sitemap.xml"
	default:
		return "pages.json"
	}
}

func init() {
	exportCmd.Flags().StringVar(&exportDir, "output-dir", config.DefaultOutputDir, "Mirror output directory holding the manifest")
	exportCmd.Flags().StringVar(&exportFormat, "format", export.FormatJSON, "Export format: json/csv/sitemap")
	exportCmd.Flags().StringVar(&exportFile, "file", "", "Output file path (default depends on format)")
	exportCmd.Flags().StringVar(&manifestName, "manifest", config.Default().ManifestFile, "Manifest file name inside the output directory")
}
