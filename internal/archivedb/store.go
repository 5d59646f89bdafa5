package archivedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"archiver/internal/media"
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
	StatusAborted    Status = "aborted"
)

var (
	ErrRecordNotFound = errors.New("archive record does not exist")
	ErrRecordFinished = errors.New("archive record already finished")
)

type (
	// recordModel is the archive_records row. Times are unix seconds.
	recordModel struct {
		ID         string        `db:"id"`
		URL        string        `db:"url"`
		Status     string        `db:"status"`
		Reason     string        `db:"reason"`
		Title      string        `db:"title"`
		MediaCount int           `db:"media_count"`
		Metadata   string        `db:"metadata"`
		StartedAt  int64         `db:"started_at"`
		FinishedAt sql.NullInt64 `db:"finished_at"`
	}

	// Record is one archive run of one URL. Metadata holds the JSON rendering
	// of the result and is only set on done records.
	Record struct {
		ID         string
		URL        string
		Status     Status
		Reason     string
		Title      string
		MediaCount int
		Metadata   json.RawMessage
		StartedAt  time.Time
		FinishedAt *time.Time
	}

	Filter struct {
		Status Status
		URL    string
		Limit  uint64
	}

	Store struct {
		db  *sqlx.DB
		now func() time.Time
	}
)

var recordColumns = []string{
	"id", "url", "status", "reason", "title", "media_count", "metadata", "started_at", "finished_at",
}

func newStore(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Started inserts an in-progress record for url.
func (s *Store) Started(ctx context.Context, url string) (Record, error) {
	model := recordModel{
		ID:        uuid.NewString(),
		URL:       url,
		Status:    string(StatusInProgress),
		StartedAt: s.now().Unix(),
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO archive_records (id, url, status, started_at)
		VALUES (:id, :url, :status, :started_at)
	`, model)
	if err != nil {
		return Record{}, fmt.Errorf("failed to insert archive record for %s: %w", url, err)
	}

	return model.record(), nil
}

// Done marks the record finished with the archived metadata.
func (s *Store) Done(ctx context.Context, id string, md *media.Metadata) error {
	rendered, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("failed to encode metadata for record %s: %w", id, err)
	}

	return s.finish(ctx, id, map[string]any{
		"status":      string(StatusDone),
		"title":       md.Title(),
		"media_count": len(md.Media),
		"metadata":    string(rendered),
	})
}

func (s *Store) Failed(ctx context.Context, id, reason string) error {
	return s.finish(ctx, id, map[string]any{
		"status": string(StatusFailed),
		"reason": reason,
	})
}

func (s *Store) Aborted(ctx context.Context, id string) error {
	return s.finish(ctx, id, map[string]any{
		"status": string(StatusAborted),
	})
}

// finish moves an in-progress record to a final state. Finished records
// never change again.
func (s *Store) finish(ctx context.Context, id string, set map[string]any) error {
	set["finished_at"] = s.now().Unix()

	query, args, err := squirrel.Update("archive_records").
		SetMap(set).
		Where(squirrel.Eq{"id": id, "status": string(StatusInProgress)}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to construct update query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update archive record %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return err
	}

	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s", ErrRecordFinished, id)
}

func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	query, args, err := selectRecordBuilder().Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return Record{}, fmt.Errorf("failed to construct select record query: %w", err)
	}

	var model recordModel
	if err := s.db.GetContext(ctx, &model, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
		}
		return Record{}, fmt.Errorf("failed to find archive record %s: %w", id, err)
	}

	return model.record(), nil
}

// List returns matching records, newest first.
func (s *Store) List(ctx context.Context, filter Filter) ([]Record, error) {
	builder := selectRecordBuilder().OrderBy("started_at DESC", "rowid DESC")
	if filter.Status != "" {
		builder = builder.Where(squirrel.Eq{"status": string(filter.Status)})
	}
	if filter.URL != "" {
		builder = builder.Where(squirrel.Eq{"url": filter.URL})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct list records query: %w", err)
	}

	var models []recordModel
	if err := s.db.SelectContext(ctx, &models, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list archive records: %w", err)
	}

	output := make([]Record, len(models))
	for i, m := range models {
		output[i] = m.record()
	}
	return output, nil
}

func selectRecordBuilder() squirrel.SelectBuilder {
	return squirrel.Select(recordColumns...).From("archive_records")
}

func (m recordModel) record() Record {
	r := Record{
		ID:         m.ID,
		URL:        m.URL,
		Status:     Status(m.Status),
		Reason:     m.Reason,
		Title:      m.Title,
		MediaCount: m.MediaCount,
		StartedAt:  time.Unix(m.StartedAt, 0).UTC(),
	}
	if m.Metadata != "" {
		r.Metadata = json.RawMessage(m.Metadata)
	}
	if m.FinishedAt.Valid {
		finished := time.Unix(m.FinishedAt.Int64, 0).UTC()
		r.FinishedAt = &finished
	}
	return r
}
