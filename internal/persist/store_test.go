package persist

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pkt.systems/scribe/schema"
)

func testRecording(id schema.RecordingID, startedAt time.Time) schema.Recording {
	return schema.Recording{
		ID: id,
		Session: schema.Session{
			ID:           schema.SessionID(id),
			StartedAt:    startedAt,
			InitialTabID: "tab-1",
			InitialURL:   "https://example.com",
		},
		Events: []schema.CapturedEvent{
			{ID: 1, Timestamp: startedAt, Action: schema.ActionDescriptor{Type: schema.ActionSessionStart}},
		},
	}
}

func TestSaveAndGetRecording(t *testing.T) {
	store, err := NewStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()
	rec := testRecording("rec-1", time.Now().UTC().Truncate(time.Second))
	if err := store.SaveRecording(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.GetRecording(ctx, "rec-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != rec.ID || len(got.Events) != 1 || got.Session.InitialTabID != "tab-1" {
		t.Fatalf("unexpected recording: %+v", got)
	}
}

func TestSaveRecordingRefusesDuplicateID(t *testing.T) {
	store, err := NewStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()
	rec := testRecording("rec-1", time.Now().UTC())
	if err := store.SaveRecording(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SaveRecording(ctx, rec); !errors.Is(err, schema.ErrRecordingExists) {
		t.Fatalf("second save error = %v, want ErrRecordingExists", err)
	}
}

func TestGetRecordingNotFound(t *testing.T) {
	store, err := NewStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if _, err := store.GetRecording(context.Background(), "missing"); !errors.Is(err, schema.ErrRecordingNotFound) {
		t.Fatalf("get error = %v, want ErrRecordingNotFound", err)
	}
}

func TestListRecordingsNewestFirst(t *testing.T) {
	store, err := NewStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)
	if err := store.SaveRecording(ctx, testRecording("rec-old", base.Add(-time.Hour))); err != nil {
		t.Fatalf("save old: %v", err)
	}
	if err := store.SaveRecording(ctx, testRecording("rec-new", base)); err != nil {
		t.Fatalf("save new: %v", err)
	}
	if err := store.SaveWorkflow(ctx, "rec-new", schema.Workflow{}); err != nil {
		t.Fatalf("save workflow: %v", err)
	}
	summaries, err := store.ListRecordings(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("summaries = %d, want 2", len(summaries))
	}
	if summaries[0].ID != "rec-new" || summaries[1].ID != "rec-old" {
		t.Fatalf("order = %q, %q", summaries[0].ID, summaries[1].ID)
	}
	if !summaries[0].HasWorkflow || summaries[1].HasWorkflow {
		t.Fatalf("workflow flags = %v, %v", summaries[0].HasWorkflow, summaries[1].HasWorkflow)
	}
}

func TestDeleteRecordingRemovesWorkflow(t *testing.T) {
	store, err := NewStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()
	if err := store.SaveRecording(ctx, testRecording("rec-1", time.Now().UTC())); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SaveWorkflow(ctx, "rec-1", schema.Workflow{}); err != nil {
		t.Fatalf("save workflow: %v", err)
	}
	if err := store.DeleteRecording(ctx, "rec-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetRecording(ctx, "rec-1"); !errors.Is(err, schema.ErrRecordingNotFound) {
		t.Fatalf("get after delete = %v", err)
	}
	if _, err := store.GetWorkflow(ctx, "rec-1"); !errors.Is(err, schema.ErrWorkflowNotFound) {
		t.Fatalf("workflow after delete = %v", err)
	}
	if err := store.DeleteRecording(ctx, "rec-1"); !errors.Is(err, schema.ErrRecordingNotFound) {
		t.Fatalf("second delete = %v, want ErrRecordingNotFound", err)
	}
}

func TestEncryptedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	keyStore := filepath.Join(dir, "keys", "store.pb")
	store, err := NewStore(filepath.Join(dir, "state"), keyStore)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()
	rec := testRecording("rec-enc", time.Now().UTC().Truncate(time.Second))
	rec.Title = "encrypted session"
	if err := store.SaveRecording(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, err := os.ReadFile(store.recordingPath("rec-enc"))
	if err != nil {
		t.Fatalf("read raw: %v", err)
	}
	if bytes.Contains(raw, []byte("encrypted session")) {
		t.Fatalf("payload stored in the clear")
	}

	got, err := store.GetRecording(ctx, "rec-enc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "encrypted session" || len(got.Events) != 1 {
		t.Fatalf("unexpected recording: %+v", got)
	}
}
