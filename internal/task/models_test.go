package task

import "testing"

func TestSetProgressNeverDecreases(t *testing.T) {
	state := &State{}
	state.SetProgress(40)
	state.SetProgress(20)
	if state.Progress != 40 {
		t.Fatalf("progress moved backwards: %d", state.Progress)
	}
	state.SetProgress(150)
	if state.Progress != 100 {
		t.Fatalf("progress not clamped: %d", state.Progress)
	}
}

func TestMarkFailedFreezesProgress(t *testing.T) {
	state := &State{}
	state.SetProgress(40)
	state.MarkFailed("execute", "provider chain exhausted", "provider")
	if state.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", state.Status)
	}
	if state.Progress != 40 {
		t.Fatalf("expected progress frozen at 40, got %d", state.Progress)
	}
	if len(state.Errors) != 1 || state.Errors[0].Stage != "execute" {
		t.Fatalf("unexpected errors %v", state.Errors)
	}
}

func TestMarkCompletedSetsFullProgress(t *testing.T) {
	state := &State{Progress: 80}
	state.MarkCompleted()
	if state.Status != StatusCompleted || state.Progress != 100 {
		t.Fatalf("unexpected terminal state %s/%d", state.Status, state.Progress)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := ParseStatus(" Executing "); !ok || status != StatusExecuting {
		t.Fatalf("unexpected parse result %q %v", status, ok)
	}
	if _, ok := ParseStatus("galloping"); ok {
		t.Fatal("expected unknown status to fail")
	}
}

func TestParseOperation(t *testing.T) {
	if op, ok := ParseOperation("REMOVE_REGION"); !ok || op != OpRemoveRegion {
		t.Fatalf("unexpected parse result %q %v", op, ok)
	}
	if _, ok := ParseOperation("teleport"); ok {
		t.Fatal("expected unknown operation to fail")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	state := &State{Context: map[string]any{"analysis": "a"}}
	state.AppendError("analyze", "llm unavailable", "analysis")

	snapshot := state.Clone()
	snapshot.Context["analysis"] = "b"
	snapshot.Errors[0].Message = "changed"

	if state.Context["analysis"] != "a" {
		t.Fatal("clone shares context map")
	}
	if state.Errors[0].Message != "llm unavailable" {
		t.Fatal("clone shares errors slice")
	}
}
