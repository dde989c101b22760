package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the site and show where each part came from",
	Args:  cobra.NoArgs,
	RunE:  runLoad,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the site document as JSON",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Replace the site document with an exported file",
	Long: `Replaces the whole site document with the contents of file. Files exported by
older versions, with plain strings instead of translations, are upgraded first.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the site data API",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

// exportOutput is the file flag of the export command
var exportOutput string

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")

	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(healthCmd)
}

func runLoad(cmd *cobra.Command, _ []string) error {
	if err := requireConsole(); err != nil {
		return err
	}
	snap := console.Reload(context.Background())
	printSnapshot(cmd, snap)
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	if err := requireConsole(); err != nil {
		return err
	}
	console.Load(context.Background())

	text, err := console.ExportDocumentAsText()
	if err != nil {
		return fmt.Errorf("failed to export document: %w", err)
	}
	if exportOutput == "" {
		cmd.Println(text)
		return nil
	}
	if err := os.WriteFile(exportOutput, []byte(text+"\n"), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", exportOutput, err)
	}
	cmd.Printf("Document written to %s\n", exportOutput)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	if err := requireConsole(); err != nil {
		return err
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	res, err := console.ImportDocument(context.Background(), raw)
	if err != nil {
		return fmt.Errorf("failed to import document: %w", err)
	}
	snap := console.Snapshot()
	cmd.Printf("Imported %d products.\n", len(snap.Document.Products))
	printWrite(cmd, res)
	return nil
}

func runHealth(cmd *cobra.Command, _ []string) error {
	if remote == nil || !remote.Configured() {
		cmd.Println("No site data API configured; the console works from the local cache.")
		return nil
	}
	if err := remote.Health(context.Background()); err != nil {
		return fmt.Errorf("site data API at %s is unavailable: %w", remote.BaseURL(), err)
	}
	cmd.Printf("Site data API at %s is healthy.\n", remote.BaseURL())
	return nil
}
