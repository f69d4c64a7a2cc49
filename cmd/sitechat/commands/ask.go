// ABOUTME: CLI command to ask the site assistant a question
// ABOUTME: Retrieves context, builds the system prompt, and prints the reply
package commands

import (
	"fmt"

	"github.com/harper/sitechat/internal/models"
	"github.com/spf13/cobra"
)

var askContextOnly bool

// NewAskCmd creates the ask command
func NewAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the site assistant a question",
		Long: `Ask the site assistant a question.

The closest chunks are retrieved from the index and placed in the
system prompt before the chat model answers. With --context-only the
retrieved context block is printed instead of calling the chat model.

Examples:
  sitechat ask "What have you built with Go?"
  sitechat ask --context-only "Where did you work before?"`,
		Args: cobra.ExactArgs(1),
		RunE: runAsk,
	}

	cmd.Flags().BoolVar(&askContextOnly, "context-only", false, "Print the retrieved context without generating a reply")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := loadApp(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	question := args[0]
	out := cmd.OutOrStdout()

	if askContextOnly {
		block := a.Hydrator.Retrieve(cmd.Context(), question, 0)
		if wantJSON() {
			return writeJSON(out, map[string]string{"query": question, "context": block})
		}
		if block == "" && !quiet {
			fmt.Fprintln(out, "(no relevant context found)")
			return nil
		}
		fmt.Fprintln(out, block)
		return nil
	}

	if a.Responder == nil {
		return fmt.Errorf("chat provider %q is not configured (missing API key?)", a.Config.Chat.Provider)
	}

	reply, err := a.Responder.Reply(cmd.Context(), []models.ChatMessage{{Role: models.RoleUser, Content: question}})
	if err != nil {
		return err
	}

	if wantJSON() {
		return writeJSON(out, reply)
	}
	fmt.Fprintln(out, reply.Content)
	if verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "\ncontext used: %t\n", reply.ContextUsed)
	}
	return nil
}
