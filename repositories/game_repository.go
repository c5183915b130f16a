package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/junzhij/esports-tournament-live/models"
)

var ErrGameNotFound = errors.New("game not found")

type GameRepository interface {
	ListByMatch(ctx context.Context, exec SQLExecutor) ([]*models.Game, error)
	GetByNo(ctx context.Context, exec SQLExecutor, gameNo int) (*models.Game, error)
	// EnsureForBestOf creates any missing game rows for 1..bestOf without
	// touching existing rows. Idempotent; the only creation path besides
	// the first-boot seed.
	EnsureForBestOf(ctx context.Context, exec SQLExecutor, bestOf int) error
	SaveBpDraft(ctx context.Context, exec SQLExecutor, gameNo int, payload *models.BpPayload) error
	// SetBpPublished points the game at a published snapshot; used by
	// publish (new version) and rollback (older version) alike.
	SetBpPublished(ctx context.Context, exec SQLExecutor, gameNo int, payload json.RawMessage, at time.Time, version int) error
	SetBpLocked(ctx context.Context, exec SQLExecutor, gameNo int) error
	SetResultDraftAndPublished(ctx context.Context, exec SQLExecutor, gameNo int, payload json.RawMessage, at time.Time, version int) error
	SetResultPublished(ctx context.Context, exec SQLExecutor, gameNo int, payload json.RawMessage, at time.Time, version int) error
}

type sqliteGameRepository struct {
	db *sql.DB
}

func NewSQLiteGameRepository(db *sql.DB) GameRepository {
	return &sqliteGameRepository{db: db}
}

func (r *sqliteGameRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const gameColumns = `game_no, bp_draft_json, bp_published_json, bp_published_at, bp_published_version, bp_locked,
	result_draft_json, result_published_json, result_published_at, result_published_version`

func scanGame(scan func(dest ...interface{}) error) (*models.Game, error) {
	var (
		game              models.Game
		bpDraft           sql.NullString
		bpPublished       sql.NullString
		bpPublishedAt     sql.NullString
		bpLocked          int
		resultDraft       sql.NullString
		resultPublished   sql.NullString
		resultPublishedAt sql.NullString
	)
	err := scan(
		&game.GameNo,
		&bpDraft,
		&bpPublished,
		&bpPublishedAt,
		&game.BpPublishedVersion,
		&bpLocked,
		&resultDraft,
		&resultPublished,
		&resultPublishedAt,
		&game.ResultPublishedVersion,
	)
	if err != nil {
		return nil, err
	}

	game.BpLocked = bpLocked != 0
	game.BpDraft = decodeBpPayload(bpDraft)
	game.BpPublished = decodeBpPayload(bpPublished)
	game.BpPublishedAt = decodeNullTime(bpPublishedAt)
	game.ResultDraft = decodeResultPayload(resultDraft)
	game.ResultPublished = decodeResultPayload(resultPublished)
	game.ResultPublishedAt = decodeNullTime(resultPublishedAt)
	return &game, nil
}

// Stored payloads are opaque JSON text; a corrupt blob reads back as nil
// rather than failing the whole view.

func decodeBpPayload(value sql.NullString) *models.BpPayload {
	if !value.Valid || value.String == "" {
		return nil
	}
	var payload models.BpPayload
	if err := json.Unmarshal([]byte(value.String), &payload); err != nil {
		return nil
	}
	return &payload
}

func decodeResultPayload(value sql.NullString) *models.ResultPayload {
	if !value.Valid || value.String == "" {
		return nil
	}
	var payload models.ResultPayload
	if err := json.Unmarshal([]byte(value.String), &payload); err != nil {
		return nil
	}
	return &payload
}

func (r *sqliteGameRepository) ListByMatch(ctx context.Context, exec SQLExecutor) ([]*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM game WHERE match_id = ? ORDER BY game_no ASC`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, models.LiveMatchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	games := make([]*models.Game, 0)
	for rows.Next() {
		game, err := scanGame(rows.Scan)
		if err != nil {
			return nil, err
		}
		games = append(games, game)
	}
	return games, rows.Err()
}

func (r *sqliteGameRepository) GetByNo(ctx context.Context, exec SQLExecutor, gameNo int) (*models.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM game WHERE match_id = ? AND game_no = ?`
	row := r.getExecutor(exec).QueryRowContext(ctx, query, models.LiveMatchID, gameNo)
	game, err := scanGame(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	return game, nil
}

func (r *sqliteGameRepository) EnsureForBestOf(ctx context.Context, exec SQLExecutor, bestOf int) error {
	e := r.getExecutor(exec)

	rows, err := e.QueryContext(ctx, `SELECT game_no FROM game WHERE match_id = ?`, models.LiveMatchID)
	if err != nil {
		return err
	}
	existing := make(map[int]bool)
	for rows.Next() {
		var gameNo int
		if err := rows.Scan(&gameNo); err != nil {
			rows.Close()
			return err
		}
		existing[gameNo] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for gameNo := 1; gameNo <= bestOf; gameNo++ {
		if existing[gameNo] {
			continue
		}
		_, err := e.ExecContext(ctx,
			`INSERT INTO game (match_id, game_no, bp_locked) VALUES (?, ?, 0)`,
			models.LiveMatchID, gameNo)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *sqliteGameRepository) SaveBpDraft(ctx context.Context, exec SQLExecutor, gameNo int, payload *models.BpPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	result, err := r.getExecutor(exec).ExecContext(ctx,
		`UPDATE game SET bp_draft_json = ? WHERE match_id = ? AND game_no = ?`,
		string(raw), models.LiveMatchID, gameNo)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrGameNotFound)
}

func (r *sqliteGameRepository) SetBpPublished(ctx context.Context, exec SQLExecutor, gameNo int, payload json.RawMessage, at time.Time, version int) error {
	result, err := r.getExecutor(exec).ExecContext(ctx,
		`UPDATE game SET bp_published_json = ?, bp_published_at = ?, bp_published_version = ? WHERE match_id = ? AND game_no = ?`,
		string(payload), encodeTime(at), version, models.LiveMatchID, gameNo)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrGameNotFound)
}

func (r *sqliteGameRepository) SetBpLocked(ctx context.Context, exec SQLExecutor, gameNo int) error {
	result, err := r.getExecutor(exec).ExecContext(ctx,
		`UPDATE game SET bp_locked = 1 WHERE match_id = ? AND game_no = ?`,
		models.LiveMatchID, gameNo)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrGameNotFound)
}

// SetResultDraftAndPublished writes the same payload to both the draft
// and published columns, so the admin form reopens with what is live.
func (r *sqliteGameRepository) SetResultDraftAndPublished(ctx context.Context, exec SQLExecutor, gameNo int, payload json.RawMessage, at time.Time, version int) error {
	result, err := r.getExecutor(exec).ExecContext(ctx,
		`UPDATE game SET result_draft_json = ?, result_published_json = ?, result_published_at = ?, result_published_version = ?
		 WHERE match_id = ? AND game_no = ?`,
		string(payload), string(payload), encodeTime(at), version, models.LiveMatchID, gameNo)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrGameNotFound)
}

func (r *sqliteGameRepository) SetResultPublished(ctx context.Context, exec SQLExecutor, gameNo int, payload json.RawMessage, at time.Time, version int) error {
	result, err := r.getExecutor(exec).ExecContext(ctx,
		`UPDATE game SET result_published_json = ?, result_published_at = ?, result_published_version = ? WHERE match_id = ? AND game_no = ?`,
		string(payload), encodeTime(at), version, models.LiveMatchID, gameNo)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrGameNotFound)
}
