package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the policy tools over MCP on stdio",
		Long: `Starts a Model Context Protocol server on stdin/stdout exposing the
search_leave_policy and ask_leave_policy tools to MCP-capable assistants.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := a.load(cmd)
			if err != nil {
				return err
			}
			if services.ServeMCP == nil {
				return errors.New("mcp server not configured")
			}
			return services.ServeMCP(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
