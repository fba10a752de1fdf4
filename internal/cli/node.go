package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/evcraddock/filecomments/internal/comment"
	"github.com/evcraddock/filecomments/internal/node"
)

func newNodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Manage the files and folders comments attach to",
		Long:  "Register files and folders and resolve their paths to the file ids used by the comments endpoint. Operates on the local database.",
	}

	cmd.AddCommand(newNodeAddCmd(), newNodeResolveCmd(), newNodeListCmd(), newNodeRemoveCmd())
	return cmd
}

// ownerFlag adds --owner, defaulting to the configured user.
func ownerFlag(cmd *cobra.Command, owner *string) {
	cmd.Flags().StringVar(owner, "owner", "", "owning user (default: $FC_USER or config user)")
}

func resolveOwner(owner string) (string, error) {
	if owner == "" {
		owner = getUser()
	}
	if owner == "" {
		return "", fmt.Errorf("owner is required (use --owner or 'fc login')")
	}
	return owner, nil
}

func withNodeRepo(fn func(*node.Repository) error) error {
	database, err := openDB()
	if err != nil {
		return err
	}
	defer closeDB(database)
	return fn(node.NewRepository(database))
}

func newNodeAddCmd() *cobra.Command {
	var owner string
	var folder bool

	cmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Register a file or folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := resolveOwner(owner)
			if err != nil {
				return err
			}
			kind := node.File
			if folder {
				kind = node.Folder
			}
			return withNodeRepo(func(repo *node.Repository) error {
				n, err := repo.Add(owner, args[0], kind)
				if err != nil {
					return err
				}
				if isJSON() {
					return printJSON(n)
				}
				fmt.Printf("Registered %s %s as file #%s.\n", n.Kind, n.Path, n.TargetID())
				return nil
			})
		},
	}

	ownerFlag(cmd, &owner)
	cmd.Flags().BoolVar(&folder, "folder", false, "register a folder instead of a file")
	return cmd
}

func newNodeResolveCmd() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "resolve <path>",
		Short: "Print the file id for a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := resolveOwner(owner)
			if err != nil {
				return err
			}
			return withNodeRepo(func(repo *node.Repository) error {
				id, err := repo.Resolve(owner, args[0])
				if err != nil {
					return err
				}
				if isJSON() {
					return printJSON(map[string]string{"path": args[0], "fileId": id})
				}
				fmt.Println(id)
				return nil
			})
		},
	}

	ownerFlag(cmd, &owner)
	return cmd
}

func newNodeListCmd() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered files and folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := resolveOwner(owner)
			if err != nil {
				return err
			}
			database, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB(database)

			nodes := node.NewRepository(database)
			summaries, err := summarizeNodes(nodes, comment.NewRepository(database, nodes), owner)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(summaries)
			}
			return printNodeTable(summaries)
		},
	}

	ownerFlag(cmd, &owner)
	return cmd
}

// nodeSummary is a registered node with the number of comments on it.
type nodeSummary struct {
	*node.Node
	Comments int `json:"comments"`
}

func summarizeNodes(nodes *node.Repository, comments *comment.Repository, owner string) ([]nodeSummary, error) {
	list, err := nodes.List(owner)
	if err != nil {
		return nil, err
	}

	summaries := make([]nodeSummary, 0, len(list))
	for _, n := range list {
		count, err := comments.CountByTarget(node.ObjectType, n.TargetID())
		if err != nil {
			return nil, fmt.Errorf("counting comments on %s: %w", n.Path, err)
		}
		summaries = append(summaries, nodeSummary{Node: n, Comments: count})
	}
	return summaries, nil
}

func newNodeRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <file-id>",
		Short: "Unregister a file or folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid file ID: %s", args[0])
			}
			return withNodeRepo(func(repo *node.Repository) error {
				if err := repo.Delete(id); err != nil {
					return err
				}
				if isJSON() {
					return printJSON(map[string]interface{}{"id": id, "removed": true})
				}
				fmt.Printf("File #%d and its comments removed.\n", id)
				return nil
			})
		},
	}
}
