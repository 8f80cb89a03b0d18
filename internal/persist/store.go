// Package persist stores finalized recordings and synthesized workflows on
// disk. Recordings contain keystrokes and screenshots, so payloads are
// encrypted at rest when a key store is configured.
package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"pkt.systems/kryptograf"
	"pkt.systems/kryptograf/keymgmt"
	"pkt.systems/pslog"
	"pkt.systems/scribe/schema"
)

const (
	recordingsDir  = "recordings"
	workflowsDir   = "workflows"
	descriptorName = "scribe/store"
)

// Store persists recordings and workflows under a state directory.
type Store struct {
	dir          string
	keyStorePath string
	log          pslog.Logger
}

// NewStore constructs a store at dir. An empty keyStorePath disables
// encryption and payloads are written as plain JSON.
func NewStore(dir, keyStorePath string) (*Store, error) {
	return NewStoreWithLogger(dir, keyStorePath, nil)
}

// NewStoreWithLogger constructs a store with logging.
func NewStoreWithLogger(dir, keyStorePath string, logger pslog.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("state directory is required")
	}
	for _, sub := range []string{recordingsDir, workflowsDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o700); err != nil {
			return nil, err
		}
	}
	if logger != nil {
		logger = logger.With("state_dir", dir)
	}
	s := &Store{dir: dir, keyStorePath: keyStorePath, log: logger}
	if keyStorePath != "" {
		if err := s.ensureKeyStore(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// SaveRecording writes a finalized recording. A recording id is written at
// most once.
func (s *Store) SaveRecording(ctx context.Context, rec schema.Recording) error {
	path := s.recordingPath(rec.ID)
	if _, err := os.Stat(path); err == nil {
		if s.log != nil {
			s.log.Warn("recording save refused", "recording", rec.ID, "err", schema.ErrRecordingExists)
		}
		return schema.ErrRecordingExists
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := s.writePayload(path, rec); err != nil {
		if s.log != nil {
			s.log.Warn("recording save failed", "recording", rec.ID, "err", err)
		}
		return err
	}
	if s.log != nil {
		s.log.Debug("recording save ok", "recording", rec.ID, "events", len(rec.Events))
	}
	return nil
}

// GetRecording reads a stored recording.
func (s *Store) GetRecording(ctx context.Context, id schema.RecordingID) (schema.Recording, error) {
	var rec schema.Recording
	if err := s.readPayload(s.recordingPath(id), &rec); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return schema.Recording{}, schema.ErrRecordingNotFound
		}
		if s.log != nil {
			s.log.Warn("recording load failed", "recording", id, "err", err)
		}
		return schema.Recording{}, err
	}
	return rec, nil
}

// ListRecordings returns summaries of stored recordings, newest first.
// Unreadable entries are skipped with a warning so one corrupt file does
// not hide the rest.
func (s *Store) ListRecordings(ctx context.Context) ([]schema.RecordingSummary, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, recordingsDir))
	if err != nil {
		return nil, err
	}
	summaries := make([]schema.RecordingSummary, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		var rec schema.Recording
		path := filepath.Join(s.dir, recordingsDir, entry.Name())
		if err := s.readPayload(path, &rec); err != nil {
			if s.log != nil {
				s.log.Warn("recording list skip", "file", entry.Name(), "err", err)
			}
			continue
		}
		summary := schema.RecordingSummary{
			ID:         rec.ID,
			Title:      rec.Title,
			StartedAt:  rec.Session.StartedAt,
			EndedAt:    rec.Session.EndedAt,
			EventCount: len(rec.Events),
		}
		if _, err := os.Stat(s.workflowPath(rec.ID)); err == nil {
			summary.HasWorkflow = true
		}
		summaries = append(summaries, summary)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StartedAt.After(summaries[j].StartedAt)
	})
	return summaries, nil
}

// DeleteRecording removes a recording and its workflow, if any.
func (s *Store) DeleteRecording(ctx context.Context, id schema.RecordingID) error {
	if err := os.Remove(s.recordingPath(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return schema.ErrRecordingNotFound
		}
		if s.log != nil {
			s.log.Warn("recording delete failed", "recording", id, "err", err)
		}
		return err
	}
	if err := os.Remove(s.workflowPath(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		if s.log != nil {
			s.log.Warn("workflow delete failed", "recording", id, "err", err)
		}
		return err
	}
	if s.log != nil {
		s.log.Debug("recording delete ok", "recording", id)
	}
	return nil
}

// SaveWorkflow writes the synthesized workflow for a recording. Re-running
// synthesis overwrites the previous workflow.
func (s *Store) SaveWorkflow(ctx context.Context, id schema.RecordingID, wf schema.Workflow) error {
	if err := s.writePayload(s.workflowPath(id), wf); err != nil {
		if s.log != nil {
			s.log.Warn("workflow save failed", "recording", id, "err", err)
		}
		return err
	}
	if s.log != nil {
		s.log.Debug("workflow save ok", "recording", id, "steps", len(wf.Steps))
	}
	return nil
}

// GetWorkflow reads the workflow for a recording.
func (s *Store) GetWorkflow(ctx context.Context, id schema.RecordingID) (schema.Workflow, error) {
	var wf schema.Workflow
	if err := s.readPayload(s.workflowPath(id), &wf); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return schema.Workflow{}, schema.ErrWorkflowNotFound
		}
		if s.log != nil {
			s.log.Warn("workflow load failed", "recording", id, "err", err)
		}
		return schema.Workflow{}, err
	}
	return wf, nil
}

func (s *Store) writePayload(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "payload-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		return fail(err)
	}
	if s.keyStorePath != "" {
		material, root, err := s.material()
		if err != nil {
			return fail(err)
		}
		kg := kryptograf.New(root)
		writer, err := kg.EncryptWriter(tmp, material)
		if err != nil {
			return fail(err)
		}
		if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
			_ = writer.Close()
			return fail(err)
		}
		if err := writer.Close(); err != nil {
			return fail(err)
		}
	} else {
		if _, err := tmp.Write(data); err != nil {
			return fail(err)
		}
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

func (s *Store) readPayload(path string, value any) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()
	var data []byte
	if s.keyStorePath != "" {
		material, root, err := s.material()
		if err != nil {
			return err
		}
		kg := kryptograf.New(root)
		reader, err := kg.DecryptReader(file, material)
		if err != nil {
			return err
		}
		defer func() { _ = reader.Close() }()
		data, err = io.ReadAll(reader)
		if err != nil {
			return err
		}
	} else {
		data, err = io.ReadAll(file)
		if err != nil {
			return err
		}
	}
	return json.Unmarshal(data, value)
}

func (s *Store) ensureKeyStore() error {
	if err := os.MkdirAll(filepath.Dir(s.keyStorePath), 0o700); err != nil {
		return err
	}
	_, _, err := s.material()
	if err != nil && s.log != nil {
		s.log.Warn("key store ensure failed", "err", err)
	}
	return err
}

func (s *Store) material() (keymgmt.Material, keymgmt.RootKey, error) {
	store, err := keymgmt.LoadProto(s.keyStorePath)
	if err != nil {
		return keymgmt.Material{}, keymgmt.RootKey{}, err
	}
	root, err := store.EnsureRootKey()
	if err != nil {
		return keymgmt.Material{}, keymgmt.RootKey{}, err
	}
	material, err := store.EnsureDescriptor(descriptorName, root, []byte(descriptorName))
	if err != nil {
		return keymgmt.Material{}, keymgmt.RootKey{}, err
	}
	if err := store.Commit(); err != nil {
		return keymgmt.Material{}, keymgmt.RootKey{}, err
	}
	return material, root, nil
}

func (s *Store) recordingPath(id schema.RecordingID) string {
	return filepath.Join(s.dir, recordingsDir, fileName(string(id)))
}

func (s *Store) workflowPath(id schema.RecordingID) string {
	return filepath.Join(s.dir, workflowsDir, fileName(string(id)))
}

func fileName(id string) string {
	name := sanitize(id)
	if name == "" {
		name = "unknown"
	}
	return name + ".json"
}

func sanitize(value string) string {
	var b strings.Builder
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	return b.String()
}
