package node

import (
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
)

// ErrNotFound is returned when a node does not exist for the requesting user.
var ErrNotFound = errors.New("node not found")

const selectColumns = "id, owner, path, kind, created_at"

// Repository provides access to registered files and folders.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a node repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Add registers a file or folder path for an owner.
func (r *Repository) Add(owner, p string, kind Kind) (*Node, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, fmt.Errorf("owner is required")
	}
	if !kind.IsValid() {
		return nil, fmt.Errorf("invalid node kind %q", kind)
	}
	p = normalizePath(p)
	if p == "/" {
		return nil, fmt.Errorf("path is required")
	}

	result, err := r.db.Exec(
		"INSERT INTO nodes (owner, path, kind) VALUES (?, ?, ?)",
		owner, p, string(kind),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting node: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting insert id: %w", err)
	}

	return r.GetByID(id)
}

// GetByID returns a node by ID.
func (r *Repository) GetByID(id int64) (*Node, error) {
	row := r.db.QueryRow("SELECT "+selectColumns+" FROM nodes WHERE id = ?", id)

	n, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("node %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying node %d: %w", id, err)
	}

	return n, nil
}

// Resolve maps a user's path to the target identifier used by comments.
func (r *Repository) Resolve(owner, p string) (string, error) {
	var id int64
	err := r.db.QueryRow(
		"SELECT id FROM nodes WHERE owner = ? AND path = ?",
		owner, normalizePath(p),
	).Scan(&id)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%s for %s: %w", p, owner, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", p, err)
	}

	return strconv.FormatInt(id, 10), nil
}

// List returns all nodes for an owner ordered by path.
func (r *Repository) List(owner string) (nodes []*Node, err error) {
	rows, err := r.db.Query(
		"SELECT "+selectColumns+" FROM nodes WHERE owner = ? ORDER BY path",
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("listing nodes: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning node: %w", err)
		}
		nodes = append(nodes, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating nodes: %w", err)
	}

	return nodes, nil
}

// Delete removes a node and every comment attached to it.
func (r *Repository) Delete(id int64) (err error) {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning delete: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("%w (also failed to roll back: %v)", err, rbErr)
			}
		}
	}()

	result, err := tx.Exec("DELETE FROM nodes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting node: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("node %d: %w", id, ErrNotFound)
	}

	if _, err := tx.Exec(
		"DELETE FROM comments WHERE object_type = ? AND object_id = ?",
		ObjectType, strconv.FormatInt(id, 10),
	); err != nil {
		return fmt.Errorf("deleting comments on node %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing delete: %w", err)
	}
	return nil
}

// queryRower is satisfied by *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRow(query string, args ...interface{}) *sql.Row
}

// TargetExists reports whether objectID names a registered node for objectType.
func (r *Repository) TargetExists(objectType, objectID string) (bool, error) {
	return targetExists(r.db, objectType, objectID)
}

// TargetExistsTx is TargetExists evaluated inside tx, so the answer holds
// until tx ends.
func (r *Repository) TargetExistsTx(tx *sql.Tx, objectType, objectID string) (bool, error) {
	return targetExists(tx, objectType, objectID)
}

func targetExists(q queryRower, objectType, objectID string) (bool, error) {
	if objectType != ObjectType {
		return false, nil
	}
	id, err := strconv.ParseInt(objectID, 10, 64)
	if err != nil || id <= 0 {
		return false, nil
	}

	var count int
	if err := q.QueryRow("SELECT COUNT(*) FROM nodes WHERE id = ?", id).Scan(&count); err != nil {
		return false, fmt.Errorf("checking node %d: %w", id, err)
	}

	return count > 0, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanNode(s scanner) (*Node, error) {
	var n Node
	var kind string
	if err := s.Scan(&n.ID, &n.Owner, &n.Path, &kind, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.Kind = Kind(kind)
	return &n, nil
}

func normalizePath(p string) string {
	return path.Clean("/" + strings.TrimSpace(p))
}
