package comment

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/evcraddock/filecomments/internal/db"
)

// knownTargets accepts every files target except the ones listed as missing.
type knownTargets struct {
	missing map[string]bool
}

func (k knownTargets) TargetExists(objectType, objectID string) (bool, error) {
	return objectType == "files" && !k.missing[objectID], nil
}

func TestCreateAndListByTarget(t *testing.T) {
	repo := testRepo(t)

	c, err := repo.Create(newComment("F1", "Hello"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if c.ObjectID != "F1" {
		t.Errorf("object_id = %q, want %q", c.ObjectID, "F1")
	}

	comments, err := repo.ListByTarget("files", "F1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(comments) != 1 {
		t.Fatalf("got %d comments, want 1", len(comments))
	}
	if comments[0].Message != "Hello" {
		t.Errorf("message = %q, want %q", comments[0].Message, "Hello")
	}
	if comments[0].ActorID != "user0" {
		t.Errorf("actor_id = %q, want %q", comments[0].ActorID, "user0")
	}
}

func TestCreateInvalidTarget(t *testing.T) {
	repo := testRepo(t)

	tests := []struct {
		name       string
		objectType string
		objectID   string
	}{
		{"unknown id", "files", "missing"},
		{"unknown object type", "calendars", "F1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nc := newComment(tt.objectID, "x")
			nc.ObjectType = tt.objectType
			_, err := repo.Create(nc)
			if !errors.Is(err, ErrInvalidTarget) {
				t.Fatalf("err = %v, want ErrInvalidTarget", err)
			}
		})
	}

	n, err := repo.CountByTarget("files", "missing")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("count = %d, want 0 after failed create", n)
	}
}

// txTargets answers only through TargetExistsTx and records the calls.
type txTargets struct {
	exists bool
	calls  int
}

func (tt *txTargets) TargetExists(objectType, objectID string) (bool, error) {
	return false, errors.New("TargetExists called outside the insert transaction")
}

func (tt *txTargets) TargetExistsTx(tx *sql.Tx, objectType, objectID string) (bool, error) {
	tt.calls++
	if tx == nil {
		return false, errors.New("nil tx")
	}
	return tt.exists, nil
}

func TestCreateChecksTargetInTransaction(t *testing.T) {
	tests := []struct {
		name    string
		exists  bool
		wantErr error
		wantLen int
	}{
		{"existing target", true, nil, 1},
		{"missing target", false, ErrInvalidTarget, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := testRepo(t)
			targets := &txTargets{exists: tt.exists}
			repo := NewRepository(base.db, targets)

			_, err := repo.Create(newComment("F1", "Hello"))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("create err = %v, want %v", err, tt.wantErr)
			}
			if targets.calls != 1 {
				t.Errorf("TargetExistsTx calls = %d, want 1", targets.calls)
			}
			if got := listLen(t, repo, "F1"); got != tt.wantLen {
				t.Errorf("stored comments = %d, want %d", got, tt.wantLen)
			}
		})
	}
}

func TestCreateEmptyMessageAllowed(t *testing.T) {
	repo := testRepo(t)

	c, err := repo.Create(newComment("F1", ""))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := repo.Get(c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Message != "" {
		t.Errorf("message = %q, want empty", got.Message)
	}
}

func TestMessageTooLong(t *testing.T) {
	repo := testRepo(t)

	long := make([]rune, MaxMessageLength+1)
	for i := range long {
		long[i] = 'é'
	}

	if _, err := repo.Create(newComment("F1", string(long))); !errors.Is(err, ErrMessageTooLong) {
		t.Errorf("create err = %v, want ErrMessageTooLong", err)
	}

	c, err := repo.Create(newComment("F1", string(long[:MaxMessageLength])))
	if err != nil {
		t.Fatalf("create at limit: %v", err)
	}
	if err := repo.UpdateMessage(c.ID, string(long)); !errors.Is(err, ErrMessageTooLong) {
		t.Errorf("update err = %v, want ErrMessageTooLong", err)
	}
}

func TestCreationDateTime(t *testing.T) {
	repo := testRepo(t)
	fixed := time.Date(2016, 2, 18, 17, 4, 18, 0, time.UTC)
	repo.now = func() time.Time { return fixed.Add(time.Hour) }

	nc := newComment("F1", "dated")
	nc.CreationDateTime = fixed
	c, err := repo.Create(nc)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.Get(c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.CreationDateTime.Equal(fixed) {
		t.Errorf("creation = %v, want %v", got.CreationDateTime, fixed)
	}

	undated, err := repo.Create(newComment("F1", "now"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !undated.CreationDateTime.Equal(fixed.Add(time.Hour)) {
		t.Errorf("default creation = %v, want %v", undated.CreationDateTime, fixed.Add(time.Hour))
	}
}

func TestUpdateMessage(t *testing.T) {
	repo := testRepo(t)

	c, err := repo.Create(newComment("F1", "Hello"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := repo.UpdateMessage(c.ID, "Hello again"); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := repo.Get(c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Message != "Hello again" {
		t.Errorf("message = %q, want %q", got.Message, "Hello again")
	}
	if got.ActorID != c.ActorID || got.ActorDisplayName != c.ActorDisplayName {
		t.Errorf("actor changed: %q/%q", got.ActorID, got.ActorDisplayName)
	}
	if !got.CreationDateTime.Equal(c.CreationDateTime) {
		t.Errorf("creation changed: %v -> %v", c.CreationDateTime, got.CreationDateTime)
	}
	if got.ObjectID != "F1" || got.ID != c.ID {
		t.Errorf("identity changed: id=%d object=%q", got.ID, got.ObjectID)
	}
}

func TestUpdateMessageNotFound(t *testing.T) {
	repo := testRepo(t)

	if err := repo.UpdateMessage(9999, "x"); !IsNotFound(err) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestDelete(t *testing.T) {
	repo := testRepo(t)

	c, err := repo.Create(newComment("F1", "To be deleted"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := repo.Delete(c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	comments, err := repo.ListByTarget("files", "F1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(comments) != 0 {
		t.Errorf("got %d comments after delete, want 0", len(comments))
	}
	if _, err := repo.Get(c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete err = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestLifecycleScenario(t *testing.T) {
	repo := testRepo(t)

	c, err := repo.Create(newComment("F1", "Hello"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if n := listLen(t, repo, "F1"); n != 1 {
		t.Fatalf("after create: %d comments, want 1", n)
	}

	if err := repo.UpdateMessage(c.ID, "Hello again"); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := repo.Get(c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Message != "Hello again" {
		t.Errorf("message = %q, want %q", got.Message, "Hello again")
	}

	if err := repo.Delete(c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n := listLen(t, repo, "F1"); n != 0 {
		t.Errorf("after delete: %d comments, want 0", n)
	}
	if _, err := repo.Get(c.ID); !IsNotFound(err) {
		t.Errorf("get after delete err = %v, want not found", err)
	}
}

func TestListOrderInterleavedTargets(t *testing.T) {
	repo := testRepo(t)

	for i := 0; i < 3; i++ {
		for _, target := range []string{"F1", "F2"} {
			if _, err := repo.Create(newComment(target, fmt.Sprintf("%s-%d", target, i))); err != nil {
				t.Fatalf("create: %v", err)
			}
		}
	}

	comments, err := repo.ListByTarget("files", "F2")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(comments) != 3 {
		t.Fatalf("got %d comments, want 3", len(comments))
	}
	for i, c := range comments {
		want := fmt.Sprintf("F2-%d", i)
		if c.Message != want {
			t.Errorf("comment %d = %q, want %q", i, c.Message, want)
		}
	}
}

func TestConcurrentCreatesKeepOrder(t *testing.T) {
	repo := testRepo(t)

	const writers, perWriter = 4, 10
	var wg sync.WaitGroup
	errs := make(chan error, writers*perWriter)
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if _, err := repo.Create(newComment("F1", fmt.Sprintf("w%d-%d", w, i))); err != nil {
					errs <- err
				}
			}
		}(w)
	}

	// Readers run alongside writers and must always see fully written rows.
	for r := 0; r < 2; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				comments, err := repo.ListByTarget("files", "F1")
				if err != nil {
					errs <- err
					return
				}
				for _, c := range comments {
					if c.Message == "" || c.ActorID == "" {
						errs <- fmt.Errorf("torn comment %d", c.ID)
					}
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent: %v", err)
	}

	comments, err := repo.ListByTarget("files", "F1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(comments) != writers*perWriter {
		t.Fatalf("got %d comments, want %d", len(comments), writers*perWriter)
	}

	// Each writer's comments appear in the order that writer created them,
	// and ids strictly increase.
	next := make(map[string]int)
	for i, c := range comments {
		if i > 0 && c.ID <= comments[i-1].ID {
			t.Errorf("ids not increasing at %d: %d after %d", i, c.ID, comments[i-1].ID)
		}
		var w, n int
		if _, err := fmt.Sscanf(c.Message, "w%d-%d", &w, &n); err != nil {
			t.Fatalf("parse %q: %v", c.Message, err)
		}
		key := fmt.Sprintf("w%d", w)
		if n != next[key] {
			t.Errorf("writer %s: got #%d, want #%d", key, n, next[key])
		}
		next[key] = n + 1
	}
}

func newComment(target, message string) NewComment {
	return NewComment{
		ObjectType:       "files",
		ObjectID:         target,
		ActorType:        "users",
		ActorID:          "user0",
		ActorDisplayName: "User Zero",
		Verb:             "comment",
		Message:          message,
	}
}

func listLen(t *testing.T, repo *Repository, target string) int {
	t.Helper()
	comments, err := repo.ListByTarget("files", target)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	return len(comments)
}

// testRepo creates a comment repository backed by a temporary database.
func testRepo(t *testing.T) *Repository {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close db: %v", err)
		}
	})
	return NewRepository(d, knownTargets{missing: map[string]bool{"missing": true}})
}
