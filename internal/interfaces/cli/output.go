package cli

import (
	"github.com/spf13/cobra"

	"github.com/catalogsite/backend/internal/application/provider"
	"github.com/catalogsite/backend/internal/domain/site"
)

func printSnapshot(cmd *cobra.Command, snap provider.Snapshot) {
	cmd.Printf("Document:  %s\n", snap.DocumentTier)
	cmd.Printf("Inquiries: %s\n", snap.InquiriesTier)
	cmd.Printf("Products:  %d\n", len(snap.Document.Products))
	if snap.Warning != "" {
		cmd.Printf("Warning:   %s\n", snap.Warning)
	}
}

func printWrite(cmd *cobra.Command, res provider.WriteResult) {
	cmd.Printf("Sync status: %s", res.Status)
	if res.Chunked {
		cmd.Print(" (chunked)")
	}
	cmd.Println()
	if res.Err != nil {
		cmd.Printf("  Reason: %v\n", res.Err)
	}
}

// defaultText returns the text of the default locale, falling back to English
func defaultText(doc site.Document, t site.LocalizedText) string {
	return t.Get(doc.Locales.Default, "en")
}
