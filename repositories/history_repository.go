package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/junzhij/esports-tournament-live/models"
)

var ErrPublishRecordNotFound = errors.New("publish history record not found")

// PublishHistoryRepository owns the append-only publish log. Rows are
// never updated or deleted; rollback reads older versions, it does not
// rewrite them.
type PublishHistoryRepository interface {
	NextVersion(ctx context.Context, exec SQLExecutor, gameNo int, kind models.PublishKind) (int, error)
	Append(ctx context.Context, exec SQLExecutor, record *models.PublishRecord) error
	GetVersion(ctx context.Context, exec SQLExecutor, gameNo int, kind models.PublishKind, version int) (*models.PublishRecord, error)
	ListByGame(ctx context.Context, exec SQLExecutor, gameNo int, kind models.PublishKind) ([]*models.PublishRecord, error)
}

type sqlitePublishHistoryRepository struct {
	db *sql.DB
}

func NewSQLitePublishHistoryRepository(db *sql.DB) PublishHistoryRepository {
	return &sqlitePublishHistoryRepository{db: db}
}

func (r *sqlitePublishHistoryRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *sqlitePublishHistoryRepository) NextVersion(ctx context.Context, exec SQLExecutor, gameNo int, kind models.PublishKind) (int, error) {
	query := `SELECT COALESCE(MAX(version), 0) FROM publish_history WHERE match_id = ? AND game_no = ? AND kind = ?`
	var current int
	err := r.getExecutor(exec).QueryRowContext(ctx, query, models.LiveMatchID, gameNo, string(kind)).Scan(&current)
	if err != nil {
		return 0, err
	}
	return current + 1, nil
}

func (r *sqlitePublishHistoryRepository) Append(ctx context.Context, exec SQLExecutor, record *models.PublishRecord) error {
	query := `
		INSERT INTO publish_history (match_id, game_no, kind, version, payload_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.getExecutor(exec).ExecContext(ctx, query,
		models.LiveMatchID,
		record.GameNo,
		string(record.Kind),
		record.Version,
		string(record.Payload),
		encodeTime(record.CreatedAt),
	)
	return err
}

func (r *sqlitePublishHistoryRepository) GetVersion(ctx context.Context, exec SQLExecutor, gameNo int, kind models.PublishKind, version int) (*models.PublishRecord, error) {
	query := `
		SELECT game_no, kind, version, payload_json, created_at
		FROM publish_history
		WHERE match_id = ? AND game_no = ? AND kind = ? AND version = ?`

	record, err := r.scanRecord(r.getExecutor(exec).QueryRowContext(ctx, query,
		models.LiveMatchID, gameNo, string(kind), version))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPublishRecordNotFound
		}
		return nil, err
	}
	return record, nil
}

func (r *sqlitePublishHistoryRepository) ListByGame(ctx context.Context, exec SQLExecutor, gameNo int, kind models.PublishKind) ([]*models.PublishRecord, error) {
	query := `
		SELECT game_no, kind, version, payload_json, created_at
		FROM publish_history
		WHERE match_id = ? AND game_no = ? AND kind = ?
		ORDER BY version DESC`

	rows, err := r.getExecutor(exec).QueryContext(ctx, query, models.LiveMatchID, gameNo, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]*models.PublishRecord, 0)
	for rows.Next() {
		record, err := r.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *sqlitePublishHistoryRepository) scanRecord(row rowScanner) (*models.PublishRecord, error) {
	var (
		record    models.PublishRecord
		payload   string
		createdAt string
	)
	if err := row.Scan(&record.GameNo, &record.Kind, &record.Version, &payload, &createdAt); err != nil {
		return nil, err
	}
	record.Payload = []byte(payload)
	var err error
	if record.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, err
	}
	return &record, nil
}
