package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/snappy-loop/shadowtwin/internal/models"
)

// SimulationRepository persists simulation runs; input and result are stored as JSONB
type SimulationRepository struct {
	db *DB
}

// NewSimulationRepository creates a new SimulationRepository
func NewSimulationRepository(db *DB) *SimulationRepository {
	return &SimulationRepository{db: db}
}

// Create inserts a new simulation
func (r *SimulationRepository) Create(ctx context.Context, s *models.Simulation) error {
	input, err := json.Marshal(s.Input)
	if err != nil {
		return fmt.Errorf("marshal input: %w", err)
	}
	query := `
		INSERT INTO simulations (id, user_id, state, input, result, video_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.ExecContext(ctx, query, s.ID, s.UserID, s.State, input, nullableJSON(s.Result), s.VideoURL, s.CreatedAt, s.UpdatedAt)
	return err
}

// UpdateState sets the flow state
func (r *SimulationRepository) UpdateState(ctx context.Context, id uuid.UUID, state string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE simulations SET state = $2, updated_at = $3 WHERE id = $1`, id, state, time.Now())
	return err
}

// SaveResult stores the pipeline result and the state reached
func (r *SimulationRepository) SaveResult(ctx context.Context, id uuid.UUID, state string, result *models.PipelineResult) error {
	query := `UPDATE simulations SET state = $2, result = $3, updated_at = $4 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, state, nullableJSON(result), time.Now())
	return err
}

// SetVideoURL records a finished avatar video
func (r *SimulationRepository) SetVideoURL(ctx context.Context, id uuid.UUID, url string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE simulations SET video_url = $2, updated_at = $3 WHERE id = $1`, id, url, time.Now())
	return err
}

// GetByID retrieves a simulation by ID
func (r *SimulationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Simulation, error) {
	query := `
		SELECT id, user_id, state, input, result, video_url, created_at, updated_at
		FROM simulations WHERE id = $1
	`
	s, err := scanSimulation(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// ListByUser returns a user's simulations, newest first, older than cursor when set
func (r *SimulationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int, cursor *time.Time) ([]*models.Simulation, error) {
	query := `
		SELECT id, user_id, state, input, result, video_url, created_at, updated_at
		FROM simulations
		WHERE user_id = $1 AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at DESC
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, userID, cursor, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sims []*models.Simulation
	for rows.Next() {
		s, err := scanSimulation(rows)
		if err != nil {
			return nil, err
		}
		sims = append(sims, s)
	}
	return sims, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSimulation(row rowScanner) (*models.Simulation, error) {
	s := &models.Simulation{}
	var input []byte
	var result sql.NullString
	if err := row.Scan(&s.ID, &s.UserID, &s.State, &input, &result, &s.VideoURL, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(input, &s.Input); err != nil {
		return nil, fmt.Errorf("unmarshal input: %w", err)
	}
	if result.Valid {
		s.Result = &models.PipelineResult{}
		if err := json.Unmarshal([]byte(result.String), s.Result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
	}
	return s, nil
}

// nullableJSON marshals v, mapping a nil pointer to SQL NULL.
func nullableJSON(v *models.PipelineResult) any {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
