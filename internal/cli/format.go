package cli

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/evcraddock/filecomments/internal/auth"
	"github.com/evcraddock/filecomments/internal/comment"
)

// printJSON marshals v as indented JSON and writes it to stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printCommentList prints comments in text format.
func printCommentList(comments []*comment.Comment) {
	if len(comments) == 0 {
		fmt.Println("No comments.")
		return
	}

	for _, c := range comments {
		fmt.Printf("[%s] #%d (%s)\n  %s\n\n",
			c.CreationDateTime.Format("2006-01-02 15:04"), c.ID, authorName(c), c.Message)
	}
}

// authorName returns the display name, falling back to the actor id.
func authorName(c *comment.Comment) string {
	if c.ActorDisplayName != "" {
		return c.ActorDisplayName
	}
	if c.ActorID != "" {
		return c.ActorID
	}
	return "anonymous"
}

// table writes rows as aligned columns under a header and separator.
func table(header, separator string, rows [][]interface{}, format string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, header); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(w, separator); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, format, row...); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}
	return nil
}

// printNodeTable prints registered files and folders with their comment counts.
func printNodeTable(nodes []nodeSummary) error {
	if len(nodes) == 0 {
		fmt.Println("No files registered.")
		return nil
	}

	rows := make([][]interface{}, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, []interface{}{n.ID, n.Kind, n.Comments, truncate(n.Path, 60)})
	}
	if err := table("ID\tKIND\tCOMMENTS\tPATH", "--\t----\t--------\t----", rows, "%d\t%s\t%d\t%s\n"); err != nil {
		return err
	}

	fmt.Printf("\nTotal: %d\n", len(nodes))
	return nil
}

// printUserTable prints users.
func printUserTable(users []*auth.User) error {
	if len(users) == 0 {
		fmt.Println("No users.")
		return nil
	}

	rows := make([][]interface{}, 0, len(users))
	for _, u := range users {
		rows = append(rows, []interface{}{u.ID, truncate(u.DisplayName, 40), u.CreatedAt.Format("2006-01-02")})
	}
	return table("ID\tNAME\tCREATED", "--\t----\t-------", rows, "%s\t%s\t%s\n")
}

// printKeyTable prints API keys without their secret part.
func printKeyTable(keys []auth.APIKey) error {
	if len(keys) == 0 {
		fmt.Println("No API keys.")
		return nil
	}

	rows := make([][]interface{}, 0, len(keys))
	for _, k := range keys {
		lastUsed := "never"
		if k.LastUsedAt != nil {
			lastUsed = k.LastUsedAt.UTC().Format(http.TimeFormat)
		}
		rows = append(rows, []interface{}{k.ID, k.UserID, truncate(k.Name, 30), k.KeyPrefix + "…", lastUsed})
	}
	return table("ID\tUSER\tNAME\tKEY\tLAST USED", "--\t----\t----\t---\t---------", rows, "%d\t%s\t%s\t%s\t%s\n")
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
