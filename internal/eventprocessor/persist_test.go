// CoursePulse - Learning Platform Activity Telemetry
// Copyright 2026 CoursePulse Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/coursepulse/coursepulse

package eventprocessor

import (
	"context"
	"errors"
	"testing"

	"github.com/coursepulse/coursepulse/internal/models"
)

type mockStore struct {
	inserted []models.ActivityRecord
	err      error
}

func (m *mockStore) InsertActivity(_ context.Context, rec *models.ActivityRecord) error {
	if m.err != nil {
		return m.err
	}
	m.inserted = append(m.inserted, *rec)
	return nil
}

func TestPersistHandlerCommits(t *testing.T) {
	store := &mockStore{}
	handler, err := NewPersistHandler(store, nil)
	if err != nil {
		t.Fatalf("NewPersistHandler failed: %v", err)
	}

	msg, err := EncodeEvent(testEvent())
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	if err := handler.Handle(msg); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("inserted %d records, want 1", len(store.inserted))
	}

	rec := store.inserted[0]
	if rec.ID == "" {
		t.Error("record must be assigned an ID")
	}
	if rec.ActivityType != models.ActivityPageView || rec.SessionID != "sess-1" {
		t.Errorf("record fields lost: %+v", rec)
	}
}

func TestPersistHandlerFreshIDPerDelivery(t *testing.T) {
	store := &mockStore{}
	handler, err := NewPersistHandler(store, nil)
	if err != nil {
		t.Fatalf("NewPersistHandler failed: %v", err)
	}

	msg, err := EncodeEvent(testEvent())
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	// A redelivery of the same message lands as a separate row.
	if err := handler.Handle(msg); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if err := handler.Handle(msg); err != nil {
		t.Fatalf("second delivery failed: %v", err)
	}
	if len(store.inserted) != 2 {
		t.Fatalf("inserted %d records, want 2", len(store.inserted))
	}
	if store.inserted[0].ID == store.inserted[1].ID {
		t.Error("redelivery must mint a fresh record ID")
	}
}

func TestPersistHandlerReRaisesCommitError(t *testing.T) {
	commitErr := errors.New("disk full")
	handler, err := NewPersistHandler(&mockStore{err: commitErr}, nil)
	if err != nil {
		t.Fatalf("NewPersistHandler failed: %v", err)
	}

	msg, err := EncodeEvent(testEvent())
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}

	if err := handler.Handle(msg); !errors.Is(err, commitErr) {
		t.Errorf("Handle error = %v, want wrapped commit error", err)
	}
}

func TestPersistHandlerRejectsUndecodable(t *testing.T) {
	store := &mockStore{}
	handler, err := NewPersistHandler(store, nil)
	if err != nil {
		t.Fatalf("NewPersistHandler failed: %v", err)
	}

	msg, err := EncodeEvent(testEvent())
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	msg.Payload = []byte("corrupt")

	if err := handler.Handle(msg); err == nil {
		t.Error("expected error for undecodable message")
	}
	if len(store.inserted) != 0 {
		t.Error("undecodable message must not reach the store")
	}
}

func TestPersistHandlerRequiresStore(t *testing.T) {
	if _, err := NewPersistHandler(nil, nil); err == nil {
		t.Error("expected error for nil store")
	}
}
