package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kavya5cloud/studyroom/internal/repository"
)

// SQLSTATE for malformed input such as a non-uuid id.
const invalidTextRepresentation = "22P02"

type PostgresRepository struct {
	pool *pgxpool.Pool
	hub  *changeHub
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
		hub:  newChangeHub(pool, participantsNotifyChannel, roomsNotifyChannel),
	}
}

func (r *PostgresRepository) CreateRoom(ctx context.Context, input repository.CreateRoomInput) (*repository.Room, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO study_rooms (name, created_at)
		 VALUES ($1, $2)
		 RETURNING id, name, created_at`,
		input.Name, input.CreatedAt)
	var room repository.Room
	if err := row.Scan(&room.ID, &room.Name, &room.CreatedAt); err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *PostgresRepository) GetRoom(ctx context.Context, roomID string) (*repository.Room, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT r.id, r.name, r.created_at, COUNT(p.id)
		 FROM study_rooms r LEFT JOIN room_participants p ON p.room_id = r.id
		 WHERE r.id = $1
		 GROUP BY r.id`,
		roomID)
	var room repository.Room
	err := row.Scan(&room.ID, &room.Name, &room.CreatedAt, &room.ParticipantCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &room, nil
}

// isInvalidUUID matches ids that cannot be a uuid, which can never address a row.
func isInvalidUUID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation
}

func (r *PostgresRepository) ListRooms(ctx context.Context) ([]repository.Room, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.name, r.created_at, COUNT(p.id)
		 FROM study_rooms r LEFT JOIN room_participants p ON p.room_id = r.id
		 GROUP BY r.id
		 ORDER BY r.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.Room
	for rows.Next() {
		var room repository.Room
		if err := rows.Scan(&room.ID, &room.Name, &room.CreatedAt, &room.ParticipantCount); err != nil {
			return nil, err
		}
		list = append(list, room)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) InsertParticipant(ctx context.Context, input repository.InsertParticipantInput) (*repository.Participant, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO room_participants (room_id, username, joined_at, last_seen_at)
		 VALUES ($1, $2, $3, $3)
		 RETURNING id, room_id, username, joined_at, last_seen_at`,
		input.RoomID, input.DisplayName, input.JoinedAt)
	var p repository.Participant
	if err := row.Scan(&p.ID, &p.RoomID, &p.DisplayName, &p.JoinedAt, &p.LastSeenAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresRepository) TouchParticipant(ctx context.Context, input repository.TouchParticipantInput) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE room_participants SET last_seen_at = $2 WHERE id = $1`,
		input.ParticipantID, input.LastSeenAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteParticipant succeeds when the row is already gone.
func (r *PostgresRepository) DeleteParticipant(ctx context.Context, participantID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM room_participants WHERE id = $1`, participantID)
	return err
}

func (r *PostgresRepository) ListParticipantsByRoom(ctx context.Context, roomID string) ([]repository.Participant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, room_id, username, joined_at, last_seen_at
		 FROM room_participants WHERE room_id = $1 ORDER BY joined_at ASC`,
		roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.Participant
	for rows.Next() {
		var p repository.Participant
		if err := rows.Scan(&p.ID, &p.RoomID, &p.DisplayName, &p.JoinedAt, &p.LastSeenAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) WatchParticipants(ctx context.Context, roomID string, onChange func()) (repository.Subscription, error) {
	return r.hub.subscribe(ctx, participantsNotifyChannel, roomID, onChange)
}

func (r *PostgresRepository) WatchRooms(ctx context.Context, onChange func()) (repository.Subscription, error) {
	return r.hub.subscribe(ctx, roomsNotifyChannel, "", onChange)
}

// Shutdown stops the notification listener and closes the pool.
func (r *PostgresRepository) Shutdown() error {
	r.hub.close()
	r.pool.Close()
	return nil
}
