package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	participantsNotifyChannel = "studyroom_participants"
	roomsNotifyChannel        = "studyroom_rooms"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS study_rooms (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_study_rooms_created ON study_rooms (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS room_participants (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		room_id UUID NOT NULL REFERENCES study_rooms(id) ON DELETE CASCADE,
		username TEXT NOT NULL,
		joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_room_participants_room ON room_participants (room_id, joined_at)`,
	`CREATE OR REPLACE FUNCTION studyroom_notify_participant_change() RETURNS trigger AS $$
	DECLARE
		changed_room UUID;
	BEGIN
		IF TG_OP = 'DELETE' THEN
			changed_room := OLD.room_id;
		ELSE
			changed_room := NEW.room_id;
		END IF;
		PERFORM pg_notify('` + participantsNotifyChannel + `', changed_room::text);
		IF TG_OP <> 'UPDATE' THEN
			PERFORM pg_notify('` + roomsNotifyChannel + `', changed_room::text);
		END IF;
		RETURN NULL;
	END
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS trg_room_participants_notify ON room_participants`,
	`CREATE TRIGGER trg_room_participants_notify
		AFTER INSERT OR UPDATE OR DELETE ON room_participants
		FOR EACH ROW EXECUTE FUNCTION studyroom_notify_participant_change()`,
	`CREATE OR REPLACE FUNCTION studyroom_notify_room_change() RETURNS trigger AS $$
	BEGIN
		IF TG_OP = 'DELETE' THEN
			PERFORM pg_notify('` + roomsNotifyChannel + `', OLD.id::text);
		ELSE
			PERFORM pg_notify('` + roomsNotifyChannel + `', NEW.id::text);
		END IF;
		RETURN NULL;
	END
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS trg_study_rooms_notify ON study_rooms`,
	`CREATE TRIGGER trg_study_rooms_notify
		AFTER INSERT OR UPDATE OR DELETE ON study_rooms
		FOR EACH ROW EXECUTE FUNCTION studyroom_notify_room_change()`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
