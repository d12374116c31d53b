package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/keeeal/quoth/server/quoth/domain"
)

// MessageRepository persists message records in Postgres with a pgvector
// embedding column. Every call acquires a connection from the pool and
// releases it before returning; no state is held between calls.
type MessageRepository struct {
	pool *pgxpool.Pool
	ndim int
}

func NewMessageRepository(pool *pgxpool.Pool, ndim int) (*MessageRepository, error) {
	if ndim <= 0 {
		return nil, fmt.Errorf("invalid embedding dimension %d", ndim)
	}
	return &MessageRepository{pool: pool, ndim: ndim}, nil
}

// Init makes sure the vector extension and the message table exist. Safe to
// call on every process start.
func (r *MessageRepository) Init(ctx context.Context) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		return fmt.Errorf("ensure vector extension: %w", err)
	}
	if _, err := conn.Exec(ctx, r.tableDDL()); err != nil {
		return fmt.Errorf("ensure message table: %w", err)
	}
	return nil
}

func (r *MessageRepository) tableDDL() string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS message (
			message_id BIGINT PRIMARY KEY,
			channel_id BIGINT NOT NULL,
			guild_id BIGINT NOT NULL,
			embedding vector(%d)
		)`, r.ndim)
}

func (r *MessageRepository) Exists(ctx context.Context, messageID int64) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Release()

	var exists bool
	err = conn.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM message
			WHERE message_id=$1
		)
	`, messageID).Scan(&exists)
	return exists, err
}

// Insert persists a record. Re-inserting an existing message id is a no-op,
// never an error, so concurrent ingestion paths can race safely.
func (r *MessageRepository) Insert(ctx context.Context, record domain.MessageRecord) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
		INSERT INTO message(message_id, channel_id, guild_id, embedding)
		VALUES($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
	`, record.MessageID, record.ChannelID, record.GuildID, record.Embedding)
	return err
}

func (r *MessageRepository) RandomMessage(ctx context.Context, guildID int64) (domain.MessageRecord, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return domain.MessageRecord{}, err
	}
	defer conn.Release()

	var record domain.MessageRecord
	err = conn.QueryRow(ctx, `
		SELECT message_id, channel_id, guild_id, embedding
		FROM message
		WHERE guild_id=$1
		ORDER BY random()
		LIMIT 1
	`, guildID).Scan(&record.MessageID, &record.ChannelID, &record.GuildID, &record.Embedding)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.MessageRecord{}, fmt.Errorf("guild %d: %w", guildID, domain.ErrNotFound)
	}
	return record, err
}

// ClosestMessage returns the record whose embedding minimizes L2 distance to
// the query among the guild's records. Ties break on store order. Records
// without an embedding have a NULL distance and sort last, so they are only
// returned when the guild has no embedded records at all; a guild is never
// reported empty while it holds records.
func (r *MessageRepository) ClosestMessage(ctx context.Context, embedding []float32, guildID int64) (domain.MessageRecord, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return domain.MessageRecord{}, err
	}
	defer conn.Release()

	var record domain.MessageRecord
	err = conn.QueryRow(ctx, `
		SELECT message_id, channel_id, guild_id, embedding
		FROM message
		WHERE guild_id=$1
		ORDER BY embedding <-> $2
		LIMIT 1
	`, guildID, pgvector.NewVector(embedding)).Scan(&record.MessageID, &record.ChannelID, &record.GuildID, &record.Embedding)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.MessageRecord{}, fmt.Errorf("guild %d: %w", guildID, domain.ErrNotFound)
	}
	return record, err
}

// Embedding returns the stored embedding for a message, or nil when the
// record exists without one (or does not exist at all).
func (r *MessageRepository) Embedding(ctx context.Context, messageID int64) ([]float32, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	var embedding *pgvector.Vector
	err = conn.QueryRow(ctx, `
		SELECT embedding
		FROM message
		WHERE message_id=$1
	`, messageID).Scan(&embedding)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if embedding == nil {
		return nil, nil
	}
	return embedding.Slice(), nil
}

func (r *MessageRepository) Count(ctx context.Context, guildID int64) (int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	var count int64
	err = conn.QueryRow(ctx, `
		SELECT COUNT(*)::BIGINT
		FROM message
		WHERE guild_id=$1
	`, guildID).Scan(&count)
	return count, err
}
