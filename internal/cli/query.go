package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/kilupskalvis/kbsync/internal/filter"
	"github.com/kilupskalvis/kbsync/internal/models"
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query the knowledge base",
	Long: `Query knowledge entries by structured metadata filters, or run a
similarity search over vector chunks with --near.`,
	Run: runQuery,
}

var (
	queryTypes     []string
	queryDateFrom  string
	queryDateTo    string
	queryAmountMin float64
	queryAmountMax float64
	queryPeople    []string
	queryOrgs      []string
	queryUnit      string
	queryNear      string
	queryLimit     int
)

func init() {
	queryCmd.Flags().StringSliceVar(&queryTypes, "type", nil, "document type (repeatable)")
	queryCmd.Flags().StringVar(&queryDateFrom, "from", "", "earliest date (dd/mm/yyyy, yyyy-mm-dd, or mm/yyyy)")
	queryCmd.Flags().StringVar(&queryDateTo, "to", "", "latest date (inclusive)")
	queryCmd.Flags().Float64Var(&queryAmountMin, "min", 0, "minimum amount")
	queryCmd.Flags().Float64Var(&queryAmountMax, "max", 0, "maximum amount")
	queryCmd.Flags().StringSliceVar(&queryPeople, "person", nil, "person name, substring match (repeatable)")
	queryCmd.Flags().StringSliceVar(&queryOrgs, "org", nil, "organization name, substring match (repeatable)")
	queryCmd.Flags().StringVar(&queryUnit, "unit", "", "business unit")
	queryCmd.Flags().StringVar(&queryNear, "near", "", "similarity search text")
	queryCmd.Flags().IntVar(&queryLimit, "limit", 10, "maximum similarity results")
}

func runQuery(cmd *cobra.Command, args []string) {
	bgCtx := context.Background()
	c := initFullContext()
	defer c.Close()

	if queryNear != "" {
		runNearQuery(bgCtx, c)
		return
	}

	pred := filter.Predicate{
		DateFrom:      queryDateFrom,
		DateTo:        queryDateTo,
		People:        queryPeople,
		Organizations: queryOrgs,
		BusinessUnit:  queryUnit,
	}
	for _, t := range queryTypes {
		pred.Types = append(pred.Types, models.DocumentType(t))
	}
	if cmd.Flags().Changed("min") {
		pred.AmountMin = &queryAmountMin
	}
	if cmd.Flags().Changed("max") {
		pred.AmountMax = &queryAmountMax
	}
	if err := pred.Validate(); err != nil {
		exitError("%v", err)
	}

	entries, err := c.Store.AllEntries()
	if err != nil {
		exitError("failed to read store: %v", err)
	}

	matched := filter.Evaluate(entries, pred)
	if len(matched) == 0 {
		fmt.Println("No entries match")
		return
	}

	cyan := color.New(color.FgCyan)
	for _, entry := range matched {
		cyan.Printf("%s  %s\n", shortID(entry.ID), entry.Name)
		if docType, ok := entry.Metadata.GetString(models.MetaKeyDocumentType); ok {
			fmt.Printf("        type: %s", docType)
			if unit, ok := entry.Metadata.GetString(models.MetaKeyBusinessUnit); ok {
				fmt.Printf("  unit: %s", unit)
			}
			fmt.Println()
		}
		if excerpt := strings.TrimSpace(entry.DescriptionExcerpt); excerpt != "" {
			fmt.Printf("        %s\n", firstLine(excerpt))
		}
	}
	fmt.Printf("\n%d entr%s\n", len(matched), plural(len(matched), "y", "ies"))
}

func runNearQuery(ctx context.Context, c *cmdContext) {
	vector, err := c.Embed.Embed(ctx, queryNear)
	if err != nil {
		exitError("failed to embed query: %v", err)
	}

	chunks, err := c.Client.Search(ctx, c.Config.ChunkClass, vector, queryLimit)
	if err != nil {
		exitError("search failed: %v", err)
	}
	if len(chunks) == 0 {
		fmt.Println("No chunks match")
		return
	}

	cyan := color.New(color.FgCyan)
	for _, chunk := range chunks {
		identity, _ := chunk.Metadata.GetString(models.MetaKeyIdentity)
		cyan.Printf("%s  %s\n", shortID(chunk.ID), identity)
		fmt.Printf("        %s\n", firstLine(chunk.Content))
	}
	fmt.Printf("\n%d chunk(s)\n", len(chunks))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if runes := []rune(s); len(runes) > 100 {
		s = string(runes[:100]) + "..."
	}
	return s
}

func plural(n int, singular, pluralForm string) string {
	if n == 1 {
		return singular
	}
	return pluralForm
}
