package domain

import "errors"

var (
	// ErrNotFound means a guild has no archived records to serve.
	ErrNotFound = errors.New("no archived messages found")
	// ErrGuildNotArchived means the guild has never been seen by the
	// in-memory index.
	ErrGuildNotArchived = errors.New("guild not archived")
	// ErrNoEligibleMessages means the guild is archived but every snapshot
	// was rejected by the caller's filters.
	ErrNoEligibleMessages = errors.New("no eligible messages")
	// ErrChannelForbidden means a channel's history cannot be read. Backfill
	// logs and skips the channel.
	ErrChannelForbidden = errors.New("channel forbidden")
	// ErrNotMessageable means a channel cannot receive replies.
	ErrNotMessageable = errors.New("channel is not messageable")
	// ErrMalformedEmbedding means the inference backend returned a success
	// response whose body is not a flat numeric vector of the configured
	// dimension.
	ErrMalformedEmbedding = errors.New("malformed embedding response")
)
