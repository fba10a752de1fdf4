package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCommentsCmd() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "comments <file-id>",
		Short: "List comments on a file or folder",
		Long:  "List the comments on a file or folder, oldest first.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runComments(args[0], limit, offset)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", -1, "maximum number of comments (default: all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of comments to skip")

	return cmd
}

func runComments(arg string, limit, offset int) error {
	fileID, err := parseFileID(arg)
	if err != nil {
		return err
	}
	if offset < 0 {
		return fmt.Errorf("offset must be non-negative")
	}

	comments, err := newAPIClient().ListComments(fileID, limit, offset)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(comments)
	}

	fmt.Printf("Comments on file #%s:\n\n", fileID)
	printCommentList(comments)
	return nil
}
