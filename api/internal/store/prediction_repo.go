package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"fetal-health/api/internal/fetal"
)

type PredictionRepo struct{ DB *sql.DB }

func NewPredictionRepo(db *sql.DB) *PredictionRepo { return &PredictionRepo{DB: db} }

// PredictionRow is one relayed prediction.
type PredictionRow struct {
	ID         int64
	CreatedAt  time.Time
	ChatID     int64
	Features   []float64
	Prediction int
	Label      string
	Confidence float64
}

// Insert records a prediction returned to chatID.
func (r *PredictionRepo) Insert(ctx context.Context, chatID int64, in fetal.PredictionInput, out fetal.PredictionOutput) error {
	js, err := json.Marshal(in.Vector())
	if err != nil {
		return err
	}
	const q = `
insert into predictions (chat_id, features, prediction, label, confidence)
values ($1, $2, $3, $4, $5)`
	_, err = r.DB.ExecContext(ctx, q, chatID, js, out.Prediction, out.PredictionLabel, out.Confidence)
	return err
}

// Recent returns the newest predictions for chatID, newest first.
func (r *PredictionRepo) Recent(ctx context.Context, chatID int64, limit int) ([]PredictionRow, error) {
	if limit <= 0 {
		limit = 5
	}
	const q = `
select id, created_at, chat_id, features, prediction, label, confidence
from predictions
where chat_id = $1
order by created_at desc, id desc
limit $2`
	rows, err := r.DB.QueryContext(ctx, q, chatID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PredictionRow
	for rows.Next() {
		var (
			row PredictionRow
			js  []byte
		)
		if err := rows.Scan(&row.ID, &row.CreatedAt, &row.ChatID, &js, &row.Prediction, &row.Label, &row.Confidence); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(js, &row.Features); err != nil {
			// a broken row should not hide the rest of the history
			row.Features = nil
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// PurgeOlderThan deletes history older than olderThan.
func (r *PredictionRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := time.Now().Add(-olderThan)
	const q = `delete from predictions where created_at < $1`
	res, err := r.DB.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}
