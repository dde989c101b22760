package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/catalogsite/backend/internal/domain/site"
)

var inquiryCmd = &cobra.Command{
	Use:   "inquiry",
	Short: "Manage buyer inquiries",
}

var inquiryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List inquiries, newest first",
	Args:  cobra.NoArgs,
	RunE:  runInquiryList,
}

var inquiryCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Record an inquiry",
	Args:  cobra.NoArgs,
	RunE:  runInquiryCreate,
}

var inquiryStatusCmd = &cobra.Command{
	Use:   "status [inquiry-id] [new|processing|closed]",
	Short: "Change the status of an inquiry",
	Args:  cobra.ExactArgs(2),
	RunE:  runInquiryStatus,
}

// inquiryInput collects the flags of the create command
var (
	inquiryInput    site.InquiryInput
	inquiryQuantity int
)

func init() {
	f := inquiryCreateCmd.Flags()
	f.StringVar(&inquiryInput.Name, "name", "", "Buyer name")
	f.StringVar(&inquiryInput.Email, "email", "", "Buyer email")
	f.StringVar(&inquiryInput.Message, "message", "", "Inquiry text")
	f.StringVar(&inquiryInput.ProductID, "product", "", "Product the inquiry is about")
	f.StringVar(&inquiryInput.Company, "company", "", "Buyer company")
	f.StringVar(&inquiryInput.Country, "country", "", "Buyer country")
	f.StringVar(&inquiryInput.Phone, "phone", "", "Buyer phone")
	f.IntVar(&inquiryQuantity, "quantity", 0, "Requested quantity")
	f.StringVar(&inquiryInput.Locale, "locale", "", "Locale the buyer wrote in")
	_ = inquiryCreateCmd.MarkFlagRequired("name")
	_ = inquiryCreateCmd.MarkFlagRequired("email")
	_ = inquiryCreateCmd.MarkFlagRequired("message")

	inquiryCmd.AddCommand(inquiryListCmd)
	inquiryCmd.AddCommand(inquiryCreateCmd)
	inquiryCmd.AddCommand(inquiryStatusCmd)
	rootCmd.AddCommand(inquiryCmd)
}

func runInquiryList(cmd *cobra.Command, _ []string) error {
	if err := requireConsole(); err != nil {
		return err
	}
	console.Load(context.Background())
	list := console.Inquiries()

	if len(list) == 0 {
		cmd.Println("No inquiries.")
		return nil
	}
	for i := range list {
		inq := &list[i]
		cmd.Printf("  %s  [%s]  %s <%s>\n", inq.ID, inq.Status, inq.Name, inq.Email)
		cmd.Printf("    %s  %s\n", inq.CreatedAt.Format("2006-01-02 15:04:05"), inq.Message)
	}
	cmd.Printf("\nTotal: %d inquiries\n", len(list))
	return nil
}

func runInquiryCreate(cmd *cobra.Command, _ []string) error {
	if err := requireConsole(); err != nil {
		return err
	}
	in := inquiryInput
	if inquiryQuantity > 0 {
		q := inquiryQuantity
		in.Quantity = &q
	}

	inq, res, err := console.CreateInquiry(context.Background(), in)
	if err != nil {
		return fmt.Errorf("failed to create inquiry: %w", err)
	}
	cmd.Printf("Inquiry %s created.\n", inq.ID)
	printWrite(cmd, res)
	return nil
}

func runInquiryStatus(cmd *cobra.Command, args []string) error {
	if err := requireConsole(); err != nil {
		return err
	}
	res, err := console.SetInquiryStatus(context.Background(), args[0], site.InquiryStatus(args[1]))
	if err != nil {
		return fmt.Errorf("failed to update inquiry: %w", err)
	}
	cmd.Printf("Inquiry %s is now %s.\n", args[0], args[1])
	printWrite(cmd, res)
	return nil
}
