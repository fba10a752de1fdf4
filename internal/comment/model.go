// Package comment provides the comment domain model and data access.
package comment

import "time"

// MaxMessageLength is the longest message, in characters, the store accepts.
const MaxMessageLength = 1000

// Comment is a note attached to a file or folder.
type Comment struct {
	ID               int64     `json:"id"`
	ObjectType       string    `json:"objectType"`
	ObjectID         string    `json:"objectId"`
	ActorType        string    `json:"actorType"`
	ActorID          string    `json:"actorId"`
	ActorDisplayName string    `json:"actorDisplayName"`
	Verb             string    `json:"verb"`
	Message          string    `json:"message"`
	CreationDateTime time.Time `json:"creationDateTime"`
}

// NewComment holds the fields supplied when creating a comment.
// A zero CreationDateTime means the current time.
type NewComment struct {
	ObjectType       string
	ObjectID         string
	ActorType        string
	ActorID          string
	ActorDisplayName string
	Verb             string
	Message          string
	CreationDateTime time.Time
}
