package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/BenjaminSRussell/sitemirror/internal/config"
	"github.com/BenjaminSRussell/sitemirror/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("", "", "")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultOutputDir, cfg.OutputDir)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sitemirror.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output_dir: from-file\nsettle_delay: 1s\n"), 0644))

	cfg, err := loadConfig(path, "debug", "from-flag")
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.OutputDir)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigRejectsBadLevel(t *testing.T) {
	_, err := loadConfig("", "chatty", "")
	assert.Error(t, err)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"), "", "")
	assert.Error(t, err)
}

func TestDefaultExportFile(t *testing.T) {
	assert.Equal(t, "pages.json", defaultExportFile("json"))
	assert.Equal(t, "pages.csv", defaultExportFile("csv"))
	assert.Equal(t, "sitemap.xml", defaultExportFile("sitemap"))
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	manifest, err := storage.OpenManifest(filepath.Join(dir, "manifest.db"))
	require.NoError(t, err)
	require.NoError(t, manifest.SavePage(storage.PageRecord{URL: "https://example.com/wiki/a", Folder: "a", Status: storage.StatusOK}, nil))
	require.NoError(t, manifest.Close())

	outFile := filepath.Join(t.TempDir(), "sitemap.xml")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"export", "--output-dir", dir, "--format", "sitemap", "--file", outFile})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Exported 1 pages")
	assert.Contains(t, out.String(), "Manifest: 1 pages (1 ok, 0 failed), 0 artifacts")

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<loc>https://example.com/wiki/a</loc>")
}

func TestExportCommandMissingManifest(t *testing.T) {
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"export", "--output-dir", t.TempDir(), "--format", "json", "--file", filepath.Join(t.TempDir(), "x.json")})

	assert.Error(t, rootCmd.Execute())
}

func TestMirrorCommandRegistered(t *testing.T) {
	cmd, _, err := rootCmd.Find([]string{"mirror"})
	require.NoError(t, err)
	assert.Equal(t, "mirror", cmd.Name())
	assert.NotNil(t, cmd.Flags().Lookup("config"))
	assert.NotNil(t, cmd.Flags().Lookup("log-level"))
	assert.NotNil(t, cmd.Flags().Lookup("output"))
}
