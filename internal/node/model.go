// Package node provides the file/folder registry that resolves user paths
// to the identifiers comments are attached to.
package node

import (
	"strconv"
	"time"
)

// Kind is the type of a node.
type Kind string

const (
	File   Kind = "file"
	Folder Kind = "folder"
)

// ObjectType is the comment object type served by file and folder nodes.
const ObjectType = "files"

// IsValid checks if a node kind is recognized.
func (k Kind) IsValid() bool {
	return k == File || k == Folder
}

// Node is a file or folder owned by a user.
type Node struct {
	ID        int64     `json:"id"`
	Owner     string    `json:"owner"`
	Path      string    `json:"path"`
	Kind      Kind      `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// TargetID returns the comment object id of the node.
func (n *Node) TargetID() string {
	return strconv.FormatInt(n.ID, 10)
}
