package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
)

func newSearchCmd(a *app) *cobra.Command {
	var limit int
	var country string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed policy passages",
		Long: `Runs the same retrieval as the bot: semantic search scoped to the
country and global partitions, with holiday queries re-ranked.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := a.load(cmd)
			if err != nil {
				return err
			}
			if services.Searcher == nil {
				return errors.New("search service not configured")
			}
			chunks, err := services.Searcher.Search(cmd.Context(), domain.SearchQuery{
				Query:       args[0],
				CountryCode: countryOrDefault(country, services.DefaultCountry),
				TopK:        limit,
			})
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			if asJSON {
				data, err := json.MarshalIndent(chunks, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal results: %w", err)
				}
				cmd.Println(string(data))
				return nil
			}
			printChunks(cmd, chunks)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "maximum number of results")
	cmd.Flags().StringVar(&country, "country", "", "country code (default from configuration)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output results as JSON")
	return cmd
}

func printChunks(cmd *cobra.Command, chunks []domain.RetrievedChunk) {
	if len(chunks) == 0 {
		cmd.Println("No results found.")
		return
	}
	cmd.Println("Results:")
	cmd.Println()
	for i, chunk := range chunks {
		name := chunk.DocumentName
		if name == "" {
			name = chunk.DocumentID
		}
		cmd.Printf("  [%d] %s (%.3f)\n", i+1, name, chunk.Score)
		if chunk.CountryCode != "" {
			cmd.Printf("      Country: %s\n", chunk.CountryCode)
		}
		cmd.Printf("      %s\n", snippet(chunk.Content, 200))
		cmd.Println()
	}
}

func newAskCmd(a *app) *cobra.Command {
	var country string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the bot a leave policy question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := a.load(cmd)
			if err != nil {
				return err
			}
			if services.Asker == nil {
				return errors.New("answer service not configured")
			}
			result, err := services.Asker.Ask(cmd.Context(), domain.AskRequest{
				Question:    strings.Join(args, " "),
				CountryCode: countryOrDefault(country, services.DefaultCountry),
			})
			if err != nil {
				return err
			}
			cmd.Println(result.Text)
			if len(result.Sources) > 0 {
				cmd.Println()
				cmd.Printf("Sources (%s):\n", result.ContextSource)
				for _, src := range result.Sources {
					cmd.Printf("  - %s #%d\n", firstNonEmpty(src.DocumentName, src.DocumentID), src.Position)
				}
			}
			if result.Degraded {
				return errors.New("answer degraded, see logs")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&country, "country", "", "country code (default from configuration)")
	return cmd
}

func countryOrDefault(country, fallback string) string {
	if cc := strings.ToUpper(strings.TrimSpace(country)); cc != "" {
		return cc
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func snippet(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
