package testsupport

import (
	"context"
	"testing"

	"github.com/minhduonq/deep-vision/internal/config"
	"github.com/minhduonq/deep-vision/internal/task"
)

// MustOpenStore opens a task.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *task.Store {
	t.Helper()

	store, err := task.Open(cfg)
	if err != nil {
		t.Fatalf("task.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewTask creates a pending task for tests using the provided store.
func NewTask(t testing.TB, store *task.Store, userRequest, inputRef string) *task.State {
	t.Helper()

	state, err := store.Create(context.Background(), task.NewTask{
		UserRequest: userRequest,
		InputRef:    inputRef,
		MaxRetries:  3,
	})
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return state
}
