package storage

import (
	"errors"
	"testing"
	"time"
)

func TestThreadMessages_Ordering(t *testing.T) {
	s := openTestStore(t)

	if err := s.CreateThread(ctx, Thread{ID: "t1"}); err != nil {
		t.Fatalf("CreateThread: %v", err)
	}
	ok, err := s.ThreadExists(ctx, "t1")
	if err != nil || !ok {
		t.Fatalf("ThreadExists = %v, %v; want true, nil", ok, err)
	}

	for _, m := range []ThreadMessage{
		{ID: "m1", ThreadID: "t1", Role: "user", Content: "hi"},
		{ID: "m2", ThreadID: "t1", Role: "assistant", Content: "hello"},
		{ID: "m3", ThreadID: "t1", Role: "user", Content: "recipe?"},
	} {
		if _, err := s.AppendThreadMessage(ctx, m); err != nil {
			t.Fatalf("AppendThreadMessage: %v", err)
		}
	}

	asc, err := s.ListThreadMessages(ctx, "t1", false)
	if err != nil {
		t.Fatalf("ListThreadMessages: %v", err)
	}
	if len(asc) != 3 || asc[0].ID != "m1" || asc[2].ID != "m3" {
		t.Errorf("ascending order wrong: %+v", asc)
	}

	desc, err := s.ListThreadMessages(ctx, "t1", true)
	if err != nil {
		t.Fatalf("ListThreadMessages: %v", err)
	}
	if len(desc) != 3 || desc[0].ID != "m3" || desc[2].ID != "m1" {
		t.Errorf("descending order wrong: %+v", desc)
	}
}

func TestThreadExists_Unknown(t *testing.T) {
	s := openTestStore(t)

	ok, err := s.ThreadExists(ctx, "nope")
	if err != nil {
		t.Fatalf("ThreadExists: %v", err)
	}
	if ok {
		t.Error("ThreadExists(nope) = true, want false")
	}
}

func TestSaveRun_Upsert(t *testing.T) {
	s := openTestStore(t)

	if err := s.CreateThread(ctx, Thread{ID: "t1"}); err != nil {
		t.Fatalf("CreateThread: %v", err)
	}
	if err := s.SaveRun(ctx, Run{ID: "r1", ThreadID: "t1", Status: "in_progress"}); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := s.SaveRun(ctx, Run{ID: "r1", ThreadID: "t1", Status: "failed", LastError: "boom", CompletedAt: time.Now()}); err != nil {
		t.Fatalf("SaveRun update: %v", err)
	}

	r, err := s.GetRun(ctx, "r1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if r.Status != "failed" || r.LastError != "boom" {
		t.Errorf("run = %+v, want failed/boom", r)
	}
	if r.CompletedAt.IsZero() {
		t.Error("CompletedAt not recorded")
	}

	if _, err := s.GetRun(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
