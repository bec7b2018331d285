package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"library-catalog/library"

	"github.com/spf13/cobra"
)

var dataDir string

var rootCmd = &cobra.Command{
	Use:   "import_books FILE",
	Short: "Import books from a tab-separated title/author/ISBN file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		cat, err := library.Open(dataDir)
		if err != nil {
			return fmt.Errorf("open catalog: %w", err)
		}
		res, err := importBooks(cat, f, cmd.OutOrStdout())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "\nImport complete!\n")
		fmt.Fprintf(out, "Successfully imported: %d books\n", res.imported)
		fmt.Fprintf(out, "Skipped: %d\n", res.skipped)

		if res.imported > 0 {
			fmt.Fprintln(out, "\nCatalog:")
			fmt.Fprintf(out, "%-5s %-50s %-30s\n", "ID", "Title", "Author")
			fmt.Fprintln(out, strings.Repeat("-", 87))
			for _, b := range cat.Books() {
				fmt.Fprintf(out, "%-5d %-50s %-30s\n", b.ID, truncateString(b.Title, 50), truncateString(b.Author, 30))
			}
		}
		return nil
	},
}

type importResult struct {
	imported int
	skipped  int
}

// importBooks adds one book per "title<TAB>author<TAB>isbn" row. Rows with a
// duplicate ISBN or a reserved character are reported and skipped.
func importBooks(cat *library.Catalog, r io.Reader, out io.Writer) (importResult, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.Comment = '#'
	cr.FieldsPerRecord = 3
	cr.LazyQuotes = true

	var res importResult
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				fmt.Fprintf(out, "Warning: line %d: %v, skipping\n", perr.Line, perr.Err)
				res.skipped++
				continue
			}
			return res, err
		}

		title, author, isbn := strings.TrimSpace(row[0]), strings.TrimSpace(row[1]), strings.TrimSpace(row[2])
		fmt.Fprintf(out, "Importing: %s by %s... ", title, author)
		if err := validateRow(title, author, isbn); err != nil {
			fmt.Fprintf(out, "ERROR - %v\n", err)
			res.skipped++
			continue
		}

		id, err := cat.AddBook(title, author, isbn)
		if errors.Is(err, library.ErrDuplicateISBN) {
			fmt.Fprintf(out, "SKIPPED - ISBN %s already in catalog\n", isbn)
			res.skipped++
			continue
		}
		if err != nil {
			return res, err
		}
		fmt.Fprintf(out, "SUCCESS (ID: %d)\n", id)
		res.imported++
	}
	return res, nil
}

func validateRow(fields ...string) error {
	for _, f := range fields {
		if err := library.ValidateField(f); err != nil {
			return fmt.Errorf("%q: %w", f, err)
		}
	}
	return nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

func main() {
	rootCmd.Flags().StringVarP(&dataDir, "data-dir", "d", ".", "catalog data directory")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
