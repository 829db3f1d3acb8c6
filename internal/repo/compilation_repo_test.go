package repo

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shaiso/Flust/internal/domain"
)

// fakeRow — pgx.Row с заранее заданными значениями колонок.
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *uuid.UUID:
			*p = r.values[i].(uuid.UUID)
		case *string:
			*p = r.values[i].(string)
		case *[]byte:
			*p = r.values[i].([]byte)
		case **string:
			if v, ok := r.values[i].(string); ok {
				*p = &v
			}
		case *time.Time:
			*p = r.values[i].(time.Time)
		case **time.Time:
			if v, ok := r.values[i].(time.Time); ok {
				*p = &v
			}
		}
	}
	return nil
}

func TestScanCompilation(t *testing.T) {
	id := uuid.New()
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	row := fakeRow{values: []any{
		id,
		"demo",
		"FAILED",
		[]byte(`{"nodes":[{"id":"a","plugin_type":"debug","properties":{"variable":"x"}}],"connections":[]}`),
		nil,
		"MissingProperty",
		"node a [debug]: missing required property: variable",
		created,
		nil,
		created.Add(time.Second),
	}}

	c, err := scanCompilation(row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.ID != id || c.Name != "demo" {
		t.Errorf("unexpected identity: %s %s", c.ID, c.Name)
	}
	if c.Status != domain.CompilationStatusFailed {
		t.Errorf("expected FAILED, got %s", c.Status)
	}
	if c.Code != "" {
		t.Errorf("NULL code should scan as empty, got %q", c.Code)
	}
	if c.ErrorKind != "MissingProperty" {
		t.Errorf("unexpected error kind %q", c.ErrorKind)
	}
	if len(c.Flow.Nodes) != 1 || c.Flow.Nodes[0].PluginType != "debug" {
		t.Errorf("flow not decoded: %+v", c.Flow)
	}
	if c.StartedAt != nil {
		t.Errorf("NULL started_at should scan as nil, got %v", c.StartedAt)
	}
	if c.Duration() != time.Second {
		t.Errorf("expected 1s duration, got %v", c.Duration())
	}
}

func TestScanCompilation_NotFound(t *testing.T) {
	_, err := scanCompilation(fakeRow{err: pgx.ErrNoRows})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestNullString(t *testing.T) {
	if nullString("") != nil {
		t.Error("empty string should be NULL")
	}
	if v := nullString("x"); v == nil || *v != "x" {
		t.Error("non-empty string should be kept")
	}
}
