package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   `edit <file-id> <comment-id> "text"`,
		Short: "Replace a comment's message",
		Args:  cobra.MinimumNArgs(3),
		RunE:  runEdit,
	}
}

func runEdit(cmd *cobra.Command, args []string) error {
	fileID, err := parseFileID(args[0])
	if err != nil {
		return err
	}
	id, err := parseCommentID(args[1])
	if err != nil {
		return err
	}

	text := strings.Join(args[2:], " ")
	if err := newAPIClient().EditComment(fileID, id, text); err != nil {
		return err
	}

	if isJSON() {
		return printJSON(map[string]interface{}{
			"id":      id,
			"message": text,
		})
	}

	fmt.Printf("Comment #%d updated.\n  %s\n", id, text)
	return nil
}
