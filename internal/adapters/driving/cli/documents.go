package cli

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bankwatch-labs/harvest-cli/internal/core/domain"
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Inspect stored documents",
	Long:  `Read back documents the pipeline has stored.`,
}

var documentsGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show one document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsGet,
}

var documentsListCmd = &cobra.Command{
	Use:   "list [source-id]",
	Short: "List documents for a source",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsList,
}

var documentsQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query documents by tag dimension",
	Long: `Returns documents carrying any of the given values in one tag
dimension, e.g.:

  harvest documents query --dimension sectors --values energy,water`,
	RunE: runDocumentsQuery,
}

var (
	queryDimension string
	queryValues    string
	documentsJSON  bool
)

func init() {
	documentsQueryCmd.Flags().StringVarP(&queryDimension, "dimension", "d", "",
		"Tag dimension to query ("+strings.Join(domain.TagDimensions(), ", ")+")")
	documentsQueryCmd.Flags().StringVar(&queryValues, "values", "", "Comma-separated tag values")
	documentsCmd.PersistentFlags().BoolVar(&documentsJSON, "json", false, "Emit JSON instead of text")

	documentsCmd.AddCommand(documentsGetCmd)
	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsQueryCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsGet(cmd *cobra.Command, args []string) error {
	if documentStore == nil {
		return errors.New("document store not configured")
	}

	doc, err := documentStore.Get(cmd.Context(), args[0])
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no document with ID %s", args[0])
		}
		return fmt.Errorf("loading document: %w", err)
	}

	if documentsJSON {
		return printJSON(cmd, doc)
	}
	printDocument(cmd, doc)
	return nil
}

func runDocumentsList(cmd *cobra.Command, args []string) error {
	if documentStore == nil {
		return errors.New("document store not configured")
	}

	docs, err := documentStore.List(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	if documentsJSON {
		return printJSON(cmd, docs)
	}
	if len(docs) == 0 {
		cmd.Printf("No documents found for source: %s\n", args[0])
		return nil
	}

	for i := range docs {
		printDocumentLine(cmd, &docs[i])
	}
	cmd.Printf("\nTotal: %d documents\n", len(docs))
	return nil
}

func runDocumentsQuery(cmd *cobra.Command, _ []string) error {
	if documentStore == nil {
		return errors.New("document store not configured")
	}
	if queryDimension == "" {
		return errors.New("--dimension is required")
	}
	if !slices.Contains(domain.TagDimensions(), queryDimension) {
		return fmt.Errorf("unknown dimension %q (want one of %s)",
			queryDimension, strings.Join(domain.TagDimensions(), ", "))
	}

	var values []string
	for _, v := range strings.Split(queryValues, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return errors.New("--values is required")
	}

	docs, err := documentStore.QueryByTag(cmd.Context(), queryDimension, values)
	if err != nil {
		return fmt.Errorf("querying documents: %w", err)
	}

	if documentsJSON {
		return printJSON(cmd, docs)
	}
	if len(docs) == 0 {
		cmd.Printf("No documents match %s in (%s)\n", queryDimension, strings.Join(values, ", "))
		return nil
	}

	for i := range docs {
		printDocumentLine(cmd, &docs[i])
	}
	cmd.Printf("\nTotal: %d documents\n", len(docs))
	return nil
}

func printDocumentLine(cmd *cobra.Command, doc *domain.Document) {
	date := "undated"
	if !doc.PublishedDate.IsZero() {
		date = doc.PublishedDate.Format("2006-01-02")
	}
	cmd.Printf("  %s  %s  [%s]  %s\n", doc.ID, date, doc.DocumentType, doc.Title)
}

func printDocument(cmd *cobra.Command, doc *domain.Document) {
	cmd.Printf("ID:        %s\n", doc.ID)
	cmd.Printf("Title:     %s\n", doc.Title)
	cmd.Printf("Type:      %s\n", doc.DocumentType)
	cmd.Printf("URL:       %s\n", doc.URL)
	if !doc.PublishedDate.IsZero() {
		cmd.Printf("Published: %s", doc.PublishedDate.Format("2006-01-02"))
		if doc.SourceReference.DateInferred {
			cmd.Printf(" (inferred)")
		}
		cmd.Println()
	}
	cmd.Printf("Source:    %s via %s\n",
		doc.SourceReference.SourceID, doc.SourceReference.FetchStrategy)
	cmd.Printf("Score:     %.2f\n", doc.ValidationScore)

	for _, dimension := range domain.TagDimensions() {
		if values := doc.TagValues(dimension); len(values) > 0 {
			label := strings.ToUpper(dimension[:1]) + dimension[1:]
			cmd.Printf("%-10s %s\n", label+":", strings.Join(values, ", "))
		}
	}
	cmd.Printf("Priority:  %s\n", doc.Tags.Priority)
	cmd.Printf("Status:    %s\n", doc.Tags.Status)
	cmd.Printf("Words:     %d (%d min read)\n", doc.Metadata.WordCount, doc.Metadata.ReadingTime)

	if doc.Summary != "" {
		cmd.Printf("\n%s\n", doc.Summary)
	}
}
