package task

import "context"

// Registry abstracts task persistence for the engine and API layers. The
// SQLite Store is the default implementation; a durable remote store can be
// substituted as long as it preserves two guarantees: ClaimNext hands each
// pending task to exactly one caller, and reads return complete snapshots
// (a poller never observes a half-written state).
type Registry interface {
	Create(ctx context.Context, req NewTask) (*State, error)
	GetByTaskID(ctx context.Context, taskID string) (*State, error)
	Update(ctx context.Context, state *State) error
	ClaimNext(ctx context.Context) (*State, error)
	List(ctx context.Context, statuses ...Status) ([]*State, error)
	Stats(ctx context.Context) (map[Status]int, error)
}

var _ Registry = (*Store)(nil)
