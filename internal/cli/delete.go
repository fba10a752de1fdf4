package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/evcraddock/filecomments/internal/client"
)

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <file-id> <comment-id>",
		Short: "Delete a comment",
		Args:  cobra.ExactArgs(2),
		RunE:  runDelete,
	}
}

func runDelete(cmd *cobra.Command, args []string) error {
	fileID, err := parseFileID(args[0])
	if err != nil {
		return err
	}
	id, err := parseCommentID(args[1])
	if err != nil {
		return err
	}

	err = newAPIClient().DeleteComment(fileID, id)
	alreadyGone := errors.Is(err, client.ErrNotFound)
	if err != nil && !alreadyGone {
		return err
	}

	if isJSON() {
		return printJSON(newDeleteResult(id, alreadyGone))
	}

	if alreadyGone {
		fmt.Printf("Comment #%d not found (already deleted?).\n", id)
		return nil
	}
	fmt.Printf("Comment #%d deleted.\n", id)
	return nil
}

// deleteResult is the JSON output of the delete command. Deleted is true
// only when this call removed the comment.
type deleteResult struct {
	ID             int64 `json:"id"`
	Deleted        bool  `json:"deleted"`
	AlreadyDeleted bool  `json:"already_deleted"`
}

func newDeleteResult(id int64, alreadyGone bool) deleteResult {
	return deleteResult{ID: id, Deleted: !alreadyGone, AlreadyDeleted: alreadyGone}
}

// parseFileID validates a numeric file id.
func parseFileID(s string) (string, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return "", fmt.Errorf("invalid file ID: %s", s)
	}
	return s, nil
}

// parseCommentID validates a numeric comment id.
func parseCommentID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid comment ID: %s", s)
	}
	return id, nil
}
