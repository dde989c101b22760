package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/catalogsite/backend/internal/domain/site"
)

var productCmd = &cobra.Command{
	Use:   "product",
	Short: "Manage catalog products",
}

var productListCmd = &cobra.Command{
	Use:   "list",
	Short: "List products in catalog order",
	Args:  cobra.NoArgs,
	RunE:  runProductList,
}

var productUpsertCmd = &cobra.Command{
	Use:   "upsert [file]",
	Short: "Create or replace a product from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  runProductUpsert,
}

var productDeleteCmd = &cobra.Command{
	Use:   "delete [product-id]",
	Short: "Delete a product",
	Args:  cobra.ExactArgs(1),
	RunE:  runProductDelete,
}

func init() {
	productCmd.AddCommand(productListCmd)
	productCmd.AddCommand(productUpsertCmd)
	productCmd.AddCommand(productDeleteCmd)
	rootCmd.AddCommand(productCmd)
}

func runProductList(cmd *cobra.Command, _ []string) error {
	if err := requireConsole(); err != nil {
		return err
	}
	doc := console.Load(context.Background()).Document

	if len(doc.Products) == 0 {
		cmd.Println("No products.")
		return nil
	}
	for i := range doc.Products {
		p := &doc.Products[i]
		cmd.Printf("  %-24s %-12s %s\n", p.ID, p.SKU, defaultText(doc, p.Name))
	}
	cmd.Printf("\nTotal: %d products\n", len(doc.Products))
	return nil
}

func runProductUpsert(cmd *cobra.Command, args []string) error {
	if err := requireConsole(); err != nil {
		return err
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	var p site.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("failed to parse product: %w", err)
	}

	saved, res, err := console.UpsertProduct(context.Background(), p)
	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	cmd.Printf("Product %s saved.\n", saved.ID)
	printWrite(cmd, res)
	return nil
}

func runProductDelete(cmd *cobra.Command, args []string) error {
	if err := requireConsole(); err != nil {
		return err
	}
	res, err := console.DeleteProduct(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	cmd.Printf("Product %s deleted.\n", args[0])
	printWrite(cmd, res)
	return nil
}
