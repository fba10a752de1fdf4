package cli

import (
	"path/filepath"
	"strconv"
	"testing"

	"github.com/evcraddock/filecomments/internal/auth"
	"github.com/evcraddock/filecomments/internal/comment"
	"github.com/evcraddock/filecomments/internal/db"
	"github.com/evcraddock/filecomments/internal/node"
)

func TestNodeCommands(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("FC_USER", "user0")
	dbFile := filepath.Join(t.TempDir(), "c.db")

	if _, err := executeCommand("node", "add", "/docs/report.txt", "--db", dbFile); err != nil {
		t.Fatalf("node add: %v", err)
	}
	if _, err := executeCommand("node", "add", "docs", "--folder", "--owner", "user1", "--db", dbFile); err != nil {
		t.Fatalf("node add folder: %v", err)
	}
	if _, err := executeCommand("node", "resolve", "/docs/report.txt", "--db", dbFile); err != nil {
		t.Fatalf("node resolve: %v", err)
	}
	if _, err := executeCommand("node", "resolve", "/missing", "--db", dbFile); err == nil {
		t.Error("expected error resolving unknown path")
	}
	if _, err := executeCommand("node", "list", "--format", "json", "--db", dbFile); err != nil {
		t.Fatalf("node list: %v", err)
	}

	d, err := db.Open(dbFile)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer closeDB(d)
	repo := node.NewRepository(d)

	id, err := repo.Resolve("user1", "/docs")
	if err != nil {
		t.Fatalf("resolve folder: %v", err)
	}
	if _, err := executeCommand("node", "remove", id, "--db", dbFile); err != nil {
		t.Fatalf("node remove: %v", err)
	}
	if _, err := repo.Resolve("user1", "/docs"); err == nil {
		t.Error("folder still registered after remove")
	}
}

func TestSummarizeNodesCountsComments(t *testing.T) {
	d, err := db.Open(filepath.Join(t.TempDir(), "c.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer closeDB(d)

	nodes := node.NewRepository(d)
	comments := comment.NewRepository(d, nodes)

	busy, err := nodes.Add("user0", "/busy.txt", node.File)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := nodes.Add("user0", "/quiet.txt", node.File); err != nil {
		t.Fatalf("add: %v", err)
	}
	for i := 0; i < 2; i++ {
		_, err := comments.Create(comment.NewComment{
			ObjectType: node.ObjectType, ObjectID: busy.TargetID(),
			ActorType: "users", ActorID: "user0", Verb: "comment", Message: "hi",
		})
		if err != nil {
			t.Fatalf("create comment: %v", err)
		}
	}

	summaries, err := summarizeNodes(nodes, comments, "user0")
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	want := map[string]int{"/busy.txt": 2, "/quiet.txt": 0}
	if len(summaries) != len(want) {
		t.Fatalf("got %d summaries, want %d", len(summaries), len(want))
	}
	for _, s := range summaries {
		if s.Comments != want[s.Path] {
			t.Errorf("%s comments = %d, want %d", s.Path, s.Comments, want[s.Path])
		}
	}
}

func TestUserAndAPIKeyCommands(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dbFile := filepath.Join(t.TempDir(), "c.db")

	if _, err := executeCommand("user", "add", "alice", "--name", "Alice", "--db", dbFile); err != nil {
		t.Fatalf("user add: %v", err)
	}
	if _, err := executeCommand("user", "add", "alice", "--db", dbFile); err == nil {
		t.Error("expected error adding duplicate user")
	}
	if _, err := executeCommand("user", "list", "--db", dbFile); err != nil {
		t.Fatalf("user list: %v", err)
	}

	if _, err := executeCommand("apikey", "create", "laptop", "--db", dbFile); err == nil {
		t.Error("expected error without --user")
	}
	if _, err := executeCommand("apikey", "create", "laptop", "--user", "nobody", "--db", dbFile); err == nil {
		t.Error("expected error for unknown user")
	}
	if _, err := executeCommand("apikey", "create", "laptop", "--user", "alice", "--db", dbFile); err != nil {
		t.Fatalf("apikey create: %v", err)
	}
	if _, err := executeCommand("apikey", "list", "--db", dbFile); err != nil {
		t.Fatalf("apikey list: %v", err)
	}

	d, err := db.Open(dbFile)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer closeDB(d)

	keys, err := auth.NewAPIKeyStore(d).List("alice")
	if err != nil {
		t.Fatalf("list keys: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("keys = %d, want 1", len(keys))
	}

	if _, err := executeCommand("apikey", "revoke", "abc", "--db", dbFile); err == nil {
		t.Error("expected error for non-numeric key id")
	}
	if _, err := executeCommand("apikey", "revoke", strconv.FormatInt(keys[0].ID, 10), "--db", dbFile); err != nil {
		t.Fatalf("apikey revoke: %v", err)
	}
	if _, err := executeCommand("user", "remove", "alice", "--db", dbFile); err != nil {
		t.Fatalf("user remove: %v", err)
	}

	if _, err := auth.NewUserStore(d).Get("alice"); err == nil {
		t.Error("user still present after remove")
	}
}

func TestCommentCommandsAgainstServer(t *testing.T) {
	srv, rawKey, file := testBackend(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("FC_SERVER_URL", srv.URL+"/remote.php/dav")
	t.Setenv("FC_USER", "user0")
	t.Setenv("FC_API_KEY", rawKey)

	if _, err := executeCommand("comment", file, "Hello", "there"); err != nil {
		t.Fatalf("comment: %v", err)
	}
	if _, err := executeCommand("edit", file, "1", "Hello again"); err != nil {
		t.Fatalf("edit: %v", err)
	}

	comments, err := newAPIClient().ListComments(file, -1, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(comments) != 1 || comments[0].Message != "Hello again" {
		t.Fatalf("comments = %+v", comments)
	}

	if _, err := executeCommand("comments", file, "--limit", "5", "--format", "json"); err != nil {
		t.Fatalf("comments: %v", err)
	}
	if _, err := executeCommand("delete", file, "1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// A second delete reports the comment as already gone.
	if _, err := executeCommand("delete", file, "1"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if _, err := executeCommand("comment", "999", "orphan"); err == nil {
		t.Error("expected error commenting on unknown file")
	}
}
