package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/snappy-loop/shadowtwin/internal/models"
)

// EventRepository stores the stage event log of simulations
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new EventRepository
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// Insert appends one stage event; inserting the same event twice is a no-op
func (r *EventRepository) Insert(ctx context.Context, e models.StageEvent) error {
	query := `
		INSERT INTO simulation_events (id, simulation_id, stage, status, message, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (simulation_id, stage, status, occurred_at) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, uuid.New(), e.SimulationID, e.Stage, e.Status, e.Message, e.At)
	return err
}

// ListBySimulation returns the events of one simulation in occurrence order
func (r *EventRepository) ListBySimulation(ctx context.Context, simulationID uuid.UUID) ([]models.StageEvent, error) {
	query := `
		SELECT simulation_id, stage, status, message, occurred_at
		FROM simulation_events WHERE simulation_id = $1
		ORDER BY occurred_at, id
	`
	rows, err := r.db.QueryContext(ctx, query, simulationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.StageEvent
	for rows.Next() {
		var e models.StageEvent
		if err := rows.Scan(&e.SimulationID, &e.Stage, &e.Status, &e.Message, &e.At); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
