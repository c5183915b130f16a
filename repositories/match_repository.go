package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/junzhij/esports-tournament-live/models"
)

var ErrMatchNotFound = errors.New("match not found")

// MatchUpdate carries the optional fields of a match config update; nil
// means "leave unchanged".
type MatchUpdate struct {
	Title         *string
	StreamURL     *string
	BestOf        *int
	BanCount      *int
	CurrentGameNo *int
	Status        *models.MatchStatus
}

func (u MatchUpdate) Empty() bool {
	return u.Title == nil && u.StreamURL == nil && u.BestOf == nil &&
		u.BanCount == nil && u.CurrentGameNo == nil && u.Status == nil
}

type MatchRepository interface {
	Get(ctx context.Context, exec SQLExecutor) (*models.Match, error)
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	Update(ctx context.Context, exec SQLExecutor, upd MatchUpdate, updatedAt time.Time) error
	UpdateScore(ctx context.Context, exec SQLExecutor, scoreA, scoreB int, status models.MatchStatus, updatedAt time.Time) error
	UpdateTimer(ctx context.Context, exec SQLExecutor, baseSeconds int, startedAt, updatedAt time.Time) error
}

type sqliteMatchRepository struct {
	db *sql.DB
}

func NewSQLiteMatchRepository(db *sql.DB) MatchRepository {
	return &sqliteMatchRepository{db: db}
}

func (r *sqliteMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *sqliteMatchRepository) Get(ctx context.Context, exec SQLExecutor) (*models.Match, error) {
	query := `
		SELECT id, title, stream_url, best_of, ban_count, current_game_no, status,
		       score_a, score_b, timer_base_seconds, timer_started_at, created_at, updated_at
		FROM match
		WHERE id = ?`

	var (
		match          models.Match
		timerStartedAt sql.NullString
		createdAt      string
		updatedAt      string
	)
	err := r.getExecutor(exec).QueryRowContext(ctx, query, models.LiveMatchID).Scan(
		&match.ID,
		&match.Title,
		&match.StreamURL,
		&match.BestOf,
		&match.BanCount,
		&match.CurrentGameNo,
		&match.Status,
		&match.ScoreA,
		&match.ScoreB,
		&match.TimerBaseSeconds,
		&timerStartedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}

	match.TimerStartedAt = decodeNullTime(timerStartedAt)
	if match.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, err
	}
	if match.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return nil, err
	}
	return &match, nil
}

func (r *sqliteMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		INSERT INTO match
			(id, title, stream_url, best_of, ban_count, current_game_no, status,
			 score_a, score_b, timer_base_seconds, timer_started_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var timerStartedAt interface{}
	if match.TimerStartedAt != nil {
		timerStartedAt = encodeTime(*match.TimerStartedAt)
	}

	_, err := r.getExecutor(exec).ExecContext(ctx, query,
		match.ID,
		match.Title,
		match.StreamURL,
		match.BestOf,
		match.BanCount,
		match.CurrentGameNo,
		match.Status,
		match.ScoreA,
		match.ScoreB,
		match.TimerBaseSeconds,
		timerStartedAt,
		encodeTime(match.CreatedAt),
		encodeTime(match.UpdatedAt),
	)
	return err
}

func (r *sqliteMatchRepository) Update(ctx context.Context, exec SQLExecutor, upd MatchUpdate, updatedAt time.Time) error {
	var setClauses []string
	var args []interface{}

	appendSet := func(column string, value interface{}) {
		setClauses = append(setClauses, column+" = ?")
		args = append(args, value)
	}

	if upd.Title != nil {
		appendSet("title", *upd.Title)
	}
	if upd.StreamURL != nil {
		appendSet("stream_url", *upd.StreamURL)
	}
	if upd.BestOf != nil {
		appendSet("best_of", *upd.BestOf)
	}
	if upd.BanCount != nil {
		appendSet("ban_count", *upd.BanCount)
	}
	if upd.CurrentGameNo != nil {
		appendSet("current_game_no", *upd.CurrentGameNo)
	}
	if upd.Status != nil {
		appendSet("status", string(*upd.Status))
	}
	if len(setClauses) == 0 {
		return nil
	}
	appendSet("updated_at", encodeTime(updatedAt))

	query := "UPDATE match SET " + strings.Join(setClauses, ", ") + " WHERE id = " + strconv.Itoa(models.LiveMatchID)
	result, err := r.getExecutor(exec).ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *sqliteMatchRepository) UpdateScore(ctx context.Context, exec SQLExecutor, scoreA, scoreB int, status models.MatchStatus, updatedAt time.Time) error {
	query := `UPDATE match SET score_a = ?, score_b = ?, status = ?, updated_at = ? WHERE id = ?`
	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		scoreA, scoreB, string(status), encodeTime(updatedAt), models.LiveMatchID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *sqliteMatchRepository) UpdateTimer(ctx context.Context, exec SQLExecutor, baseSeconds int, startedAt, updatedAt time.Time) error {
	query := `UPDATE match SET timer_base_seconds = ?, timer_started_at = ?, updated_at = ? WHERE id = ?`
	result, err := r.getExecutor(exec).ExecContext(ctx, query,
		baseSeconds, encodeTime(startedAt), encodeTime(updatedAt), models.LiveMatchID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}
