package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"mspro-labs/loadmore/internal/db"
)

var listDBPath string

var listCmd = &cobra.Command{
	Use:   "list [category]",
	Short: "Prints the products currently listed, as recorded by the last scrape",
	Long: `Reads the SQLite store written by "scrape --db" and prints the active products.
Examples:
  loadmore list
  loadmore list laptops`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		category := ""
		if len(args) == 1 {
			category = args[0]
		}
		return runList(os.Stdout, category)
	},
}

func init() {
	listCmd.Flags().StringVar(&listDBPath, "db", "", "SQLite file to read (default $DB_PATH)")
	rootCmd.AddCommand(listCmd)
}

func runList(w io.Writer, category string) error {
	dbPath := pick(listDBPath, appCfg.DBPath)
	if dbPath == "" {
		return errors.New("no database configured: pass --db or set DB_PATH")
	}
	database, err := db.Connect(dbPath)
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	defer database.Close()

	products, err := db.GetActiveProducts(database, category)
	if err != nil {
		return fmt.Errorf("failed to list products: %w", err)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Category", "Title", "Price", "Rating", "Reviews", "Last seen"})
	for _, p := range products {
		t.AppendRow(table.Row{
			p.Category,
			p.Title,
			fmt.Sprintf("$%.2f", p.Price),
			p.Rating,
			p.NumReviews,
			p.LastSeenAt.Format("2006-01-02 15:04"),
		})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d products", len(products))})
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}
