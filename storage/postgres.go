package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Shivanshdarji/Code-Chronicles-sub000/game"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrUnexpectedDatabase = errors.New("unexpected-database-error")

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRepo(ctx context.Context, connString string) (*PostgresRepo, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresRepo{pool: pool}, nil
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

// RecordLevel stores one finished level. An empty WinnerId is stored as NULL.
func (r *PostgresRepo) RecordLevel(ctx context.Context, result game.LevelResult) error {
	ranking, err := json.Marshal(result.Ranking)
	if err != nil {
		return err
	}

	var winnerId, winnerName *string
	if result.WinnerId != "" {
		winnerId, winnerName = &result.WinnerId, &result.WinnerName
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO level_results (room_id, round, winner_id, winner_name, ranking, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		result.RoomId, result.Round, winnerId, winnerName, ranking, result.FinishedAt,
	)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		default:
			return fmt.Errorf("%w: %w", ErrUnexpectedDatabase, err)
		}
	}
	return nil
}
