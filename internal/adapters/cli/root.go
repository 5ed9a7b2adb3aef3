package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kirillkom/leave-policy-bot/internal/core/ports"
)

// Services are the use cases the CLI drives.
type Services struct {
	Uploader       ports.DocumentUploader
	Catalog        ports.DocumentCatalog
	Searcher       ports.Searcher
	Asker          ports.PolicyAsker
	DefaultCountry string
	// ServeMCP runs the MCP tool server over the given streams.
	ServeMCP func(ctx context.Context, in io.Reader, out io.Writer) error
}

// Opener builds the services on first use so that help and flag errors never
// touch the database.
type Opener func(ctx context.Context) (*Services, func(), error)

type app struct {
	open     Opener
	services *Services
	closeFn  func()
}

// Execute runs the CLI with os.Args and releases opened services afterwards.
func Execute(ctx context.Context, open Opener) error {
	a := &app{open: open}
	defer a.close()
	return newRoot(a).ExecuteContext(ctx)
}

func NewRootCommand(open Opener) *cobra.Command {
	return newRoot(&app{open: open})
}

func newRoot(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "leavebotctl",
		Short:         "Manage and query the leave policy knowledge base",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(os.Stdout)
	root.AddCommand(
		newImportCmd(a),
		newSearchCmd(a),
		newAskCmd(a),
		newDocsCmd(a),
		newMCPCmd(a),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) (*Services, error) {
	if a.services != nil {
		return a.services, nil
	}
	if a.open == nil {
		return nil, errors.New("services not configured")
	}
	services, closeFn, err := a.open(cmd.Context())
	if err != nil {
		return nil, err
	}
	a.services, a.closeFn = services, closeFn
	return services, nil
}

func (a *app) close() {
	if a.closeFn != nil {
		a.closeFn()
		a.closeFn = nil
	}
	a.services = nil
}
