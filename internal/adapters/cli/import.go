package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kirillkom/leave-policy-bot/internal/core/domain"
)

var importableTypes = map[string]bool{".pdf": true, ".md": true, ".txt": true}

var (
	labelOK   = color.New(color.FgGreen).Sprint("ok  ")
	labelSkip = color.New(color.FgYellow).Sprint("skip")
	labelFail = color.New(color.FgRed).Sprint("fail")
)

func newImportCmd(a *app) *cobra.Command {
	var country, language string
	var queue bool

	cmd := &cobra.Command{
		Use:   "import <dir>",
		Short: "Index every policy file in a directory",
		Long: `Indexes the .pdf, .md and .txt files found directly in <dir>.
Files whose content is already indexed are skipped. With --queue the files
are archived and handed to the worker instead of being indexed inline.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := a.load(cmd)
			if err != nil {
				return err
			}
			if services.Uploader == nil {
				return errors.New("upload service not configured")
			}

			files, err := importableFiles(args[0])
			if err != nil {
				return err
			}
			if len(files) == 0 {
				cmd.Println("No policy files found.")
				return nil
			}

			var imported, skipped, failed int
			for _, path := range files {
				status, err := importFile(cmd, services, path, strings.ToUpper(country), language, queue)
				switch {
				case errors.Is(err, domain.ErrDuplicateContent):
					skipped++
					cmd.Printf("  %s  %s: %v\n", labelSkip, filepath.Base(path), err)
				case err != nil:
					failed++
					cmd.Printf("  %s  %s: %v\n", labelFail, filepath.Base(path), err)
				default:
					imported++
					cmd.Printf("  %s  %s: %s\n", labelOK, filepath.Base(path), status)
				}
			}

			cmd.Printf("Imported %d, skipped %d, failed %d.\n", imported, skipped, failed)
			if failed > 0 {
				return fmt.Errorf("%d file(s) failed to import", failed)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&country, "country", "", "country code to tag the documents with (empty = untagged)")
	cmd.Flags().StringVar(&language, "language", "", "document language (default from configuration)")
	cmd.Flags().BoolVar(&queue, "queue", false, "enqueue for the worker instead of indexing inline")
	return cmd
}

func importableFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if importableTypes[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func importFile(cmd *cobra.Command, services *Services, path, country, language string, queue bool) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	req := domain.UploadRequest{
		Filename:    filepath.Base(path),
		CountryCode: country,
		Language:    language,
		Size:        info.Size(),
		Body:        f,
	}
	if queue {
		job, err := services.Uploader.Enqueue(cmd.Context(), req)
		if err != nil {
			return "", err
		}
		return "queued as " + job.StorageKey, nil
	}
	result, err := services.Uploader.Upload(cmd.Context(), req)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d chunks (%s)", result.ChunkCount, result.DocumentID), nil
}
