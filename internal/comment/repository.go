package comment

import (
	"database/sql"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"
)

const selectColumns = `id, object_type, object_id, actor_type, actor_id,
	actor_display_name, verb, message, creation_datetime`

// TargetChecker reports whether a comment target exists.
type TargetChecker interface {
	TargetExists(objectType, objectID string) (bool, error)
}

// TxTargetChecker is a TargetChecker that can answer inside the
// transaction inserting the comment. Create uses it when available so a
// target removed concurrently cannot receive a comment.
type TxTargetChecker interface {
	TargetExistsTx(tx *sql.Tx, objectType, objectID string) (bool, error)
}

// Repository provides CRUD operations for comments.
//
// Writes are serialized by mu and each runs as one statement or one
// transaction, so readers never observe a partial mutation.
type Repository struct {
	db      *sql.DB
	targets TargetChecker
	mu      sync.RWMutex
	now     func() time.Time
}

// NewRepository creates a comment repository that validates targets with tc.
func NewRepository(db *sql.DB, tc TargetChecker) *Repository {
	return &Repository{db: db, targets: tc, now: time.Now}
}

// Create stores a new comment and returns it with its assigned ID.
func (r *Repository) Create(nc NewComment) (_ *Comment, err error) {
	if utf8.RuneCountInString(nc.Message) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}

	created := nc.CreationDateTime
	if created.IsZero() {
		created = r.now()
	}
	created = created.UTC().Truncate(time.Second)

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning insert: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("%w (also failed to roll back: %v)", err, rbErr)
			}
		}
	}()

	ok, err := r.targetExists(tx, nc.ObjectType, nc.ObjectID)
	if err != nil {
		return nil, fmt.Errorf("checking target: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", nc.ObjectType, nc.ObjectID, ErrInvalidTarget)
	}

	result, err := tx.Exec(
		`INSERT INTO comments (object_type, object_id, actor_type, actor_id,
			actor_display_name, verb, message, creation_datetime)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		nc.ObjectType, nc.ObjectID, nc.ActorType, nc.ActorID,
		nc.ActorDisplayName, nc.Verb, nc.Message, created,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting comment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing comment: %w", err)
	}

	return &Comment{
		ID:               id,
		ObjectType:       nc.ObjectType,
		ObjectID:         nc.ObjectID,
		ActorType:        nc.ActorType,
		ActorID:          nc.ActorID,
		ActorDisplayName: nc.ActorDisplayName,
		Verb:             nc.Verb,
		Message:          nc.Message,
		CreationDateTime: created,
	}, nil
}

func (r *Repository) targetExists(tx *sql.Tx, objectType, objectID string) (bool, error) {
	if tc, ok := r.targets.(TxTargetChecker); ok {
		return tc.TargetExistsTx(tx, objectType, objectID)
	}
	return r.targets.TargetExists(objectType, objectID)
}

// Get returns a comment by ID.
func (r *Repository) Get(id int64) (*Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, err := scanComment(r.db.QueryRow("SELECT "+selectColumns+" FROM comments WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("comment %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying comment %d: %w", id, err)
	}

	return c, nil
}

// UpdateMessage replaces the message of a comment. No other field changes.
func (r *Repository) UpdateMessage(id int64, message string) error {
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return ErrMessageTooLong
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	result, err := r.db.Exec("UPDATE comments SET message = ? WHERE id = ?", message, id)
	if err != nil {
		return fmt.Errorf("updating comment: %w", err)
	}

	return checkAffected(result, id)
}

// Delete removes a comment by ID.
func (r *Repository) Delete(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	result, err := r.db.Exec("DELETE FROM comments WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting comment: %w", err)
	}

	return checkAffected(result, id)
}

// ListByTarget returns all comments on a target in creation order.
func (r *Repository) ListByTarget(objectType, objectID string) (comments []*Comment, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.Query(
		"SELECT "+selectColumns+" FROM comments WHERE object_type = ? AND object_id = ? ORDER BY id ASC",
		objectType, objectID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning comment: %w", err)
		}
		comments = append(comments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating comments: %w", err)
	}

	return comments, nil
}

// CountByTarget returns the number of comments on a target.
func (r *Repository) CountByTarget(objectType, objectID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM comments WHERE object_type = ? AND object_id = ?",
		objectType, objectID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting comments: %w", err)
	}
	return n, nil
}

func checkAffected(result sql.Result, id int64) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("comment %d: %w", id, ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanComment(s scanner) (*Comment, error) {
	var c Comment
	err := s.Scan(
		&c.ID, &c.ObjectType, &c.ObjectID, &c.ActorType, &c.ActorID,
		&c.ActorDisplayName, &c.Verb, &c.Message, &c.CreationDateTime,
	)
	if err != nil {
		return nil, err
	}
	c.CreationDateTime = c.CreationDateTime.UTC()
	return &c, nil
}
