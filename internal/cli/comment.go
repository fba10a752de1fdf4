package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newCommentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   `comment <file-id> "text"`,
		Short: "Add a comment to a file or folder",
		Long:  "Add a text comment to a file or folder. Use 'fc node resolve' to find a path's file id.",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runComment,
	}
}

func runComment(cmd *cobra.Command, args []string) error {
	fileID, err := parseFileID(args[0])
	if err != nil {
		return err
	}

	text := strings.Join(args[1:], " ")
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("comment text is required")
	}

	id, err := newAPIClient().CreateComment(fileID, text)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(map[string]interface{}{
			"id":       id,
			"objectId": fileID,
			"message":  text,
		})
	}

	fmt.Printf("Comment #%d added.\n  %s\n", id, text)
	return nil
}
