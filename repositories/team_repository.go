package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/junzhij/esports-tournament-live/models"
)

var ErrTeamNotFound = errors.New("team not found")

type TeamUpdate struct {
	Name    *string
	LogoURL *string
	Color   *string
}

func (u TeamUpdate) Empty() bool {
	return u.Name == nil && u.LogoURL == nil && u.Color == nil
}

type TeamRepository interface {
	List(ctx context.Context, exec SQLExecutor) ([]*models.Team, error)
	Get(ctx context.Context, exec SQLExecutor, side models.TeamSide) (*models.Team, error)
	Create(ctx context.Context, exec SQLExecutor, team *models.Team) error
	Update(ctx context.Context, exec SQLExecutor, side models.TeamSide, upd TeamUpdate) error
}

type sqliteTeamRepository struct {
	db *sql.DB
}

func NewSQLiteTeamRepository(db *sql.DB) TeamRepository {
	return &sqliteTeamRepository{db: db}
}

func (r *sqliteTeamRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *sqliteTeamRepository) List(ctx context.Context, exec SQLExecutor) ([]*models.Team, error) {
	query := `SELECT side, name, logo_url, color FROM team WHERE match_id = ? ORDER BY side ASC`
	rows, err := r.getExecutor(exec).QueryContext(ctx, query, models.LiveMatchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]*models.Team, 0, 2)
	for rows.Next() {
		var team models.Team
		if err := rows.Scan(&team.Side, &team.Name, &team.LogoURL, &team.Color); err != nil {
			return nil, err
		}
		teams = append(teams, &team)
	}
	return teams, rows.Err()
}

func (r *sqliteTeamRepository) Get(ctx context.Context, exec SQLExecutor, side models.TeamSide) (*models.Team, error) {
	query := `SELECT side, name, logo_url, color FROM team WHERE match_id = ? AND side = ?`
	var team models.Team
	err := r.getExecutor(exec).QueryRowContext(ctx, query, models.LiveMatchID, string(side)).
		Scan(&team.Side, &team.Name, &team.LogoURL, &team.Color)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return &team, nil
}

func (r *sqliteTeamRepository) Create(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	query := `INSERT INTO team (side, match_id, name, logo_url, color) VALUES (?, ?, ?, ?, ?)`
	_, err := r.getExecutor(exec).ExecContext(ctx, query,
		string(team.Side), models.LiveMatchID, team.Name, team.LogoURL, team.Color)
	return err
}

func (r *sqliteTeamRepository) Update(ctx context.Context, exec SQLExecutor, side models.TeamSide, upd TeamUpdate) error {
	var setClauses []string
	var args []interface{}

	if upd.Name != nil {
		setClauses = append(setClauses, "name = ?")
		args = append(args, *upd.Name)
	}
	if upd.LogoURL != nil {
		setClauses = append(setClauses, "logo_url = ?")
		args = append(args, *upd.LogoURL)
	}
	if upd.Color != nil {
		setClauses = append(setClauses, "color = ?")
		args = append(args, *upd.Color)
	}
	if len(setClauses) == 0 {
		return nil
	}

	query := "UPDATE team SET " + strings.Join(setClauses, ", ") + " WHERE match_id = ? AND side = ?"
	args = append(args, models.LiveMatchID, string(side))

	result, err := r.getExecutor(exec).ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}
