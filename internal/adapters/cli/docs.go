package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
	"github.com/kirillkom/leave-policy-bot/internal/core/ports"
)

func newDocsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Manage indexed documents",
	}
	cmd.AddCommand(newDocsListCmd(a), newDocsDeleteCmd(a))
	return cmd
}

func newDocsListCmd(a *app) *cobra.Command {
	var search, country string
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List indexed documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := a.catalog(cmd)
			if err != nil {
				return err
			}
			page, err := catalog.List(cmd.Context(), domain.DocumentFilter{
				Search:      search,
				CountryCode: countryOrDefault(country, ""),
				Limit:       limit,
				Offset:      offset,
			})
			if err != nil {
				return err
			}
			if len(page.Documents) == 0 {
				cmd.Println("No documents found.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCOUNTRY\tCHUNKS\tSTATUS\tCREATED")
			for _, doc := range page.Documents {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
					doc.ID, doc.Name, firstNonEmpty(doc.CountryCode, "-"), doc.ChunkCount,
					doc.Status, doc.CreatedAt.Format("2006-01-02 15:04"))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			cmd.Printf("%d of %d document(s)\n", len(page.Documents), page.Total)
			return nil
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "filter by name or filename")
	cmd.Flags().StringVar(&country, "country", "", "filter by country code")
	cmd.Flags().IntVar(&limit, "limit", 50, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")
	return cmd
}

func newDocsDeleteCmd(a *app) *cobra.Command {
	var keepFile bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document and its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := a.catalog(cmd)
			if err != nil {
				return err
			}
			if err := catalog.Delete(cmd.Context(), args[0], !keepFile); err != nil {
				return err
			}
			cmd.Printf("Deleted %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&keepFile, "keep-file", false, "keep the archived source file")
	return cmd
}

func (a *app) catalog(cmd *cobra.Command) (ports.DocumentCatalog, error) {
	services, err := a.load(cmd)
	if err != nil {
		return nil, err
	}
	if services.Catalog == nil {
		return nil, errors.New("document catalog not configured")
	}
	return services.Catalog, nil
}
