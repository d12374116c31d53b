package service

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/keeeal/quoth/server/quoth/domain"
)

// MemoryIndex is the non-persistent archive variant: one snapshot map per
// guild, each guarded by its own lock so ingestion into different guilds
// never contends. Locks and maps are created lazily on the first message for
// a guild and never removed; guild cardinality stays small relative to
// message volume.
type MemoryIndex struct {
	mu     sync.RWMutex
	guilds map[int64]map[int64]domain.Message
	locks  map[int64]*sync.Mutex
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		guilds: map[int64]map[int64]domain.Message{},
		locks:  map[int64]*sync.Mutex{},
	}
}

func (x *MemoryIndex) guildEntry(guildID int64) (map[int64]domain.Message, *sync.Mutex) {
	x.mu.Lock()
	defer x.mu.Unlock()
	lock, ok := x.locks[guildID]
	if !ok {
		lock = &sync.Mutex{}
		x.locks[guildID] = lock
		x.guilds[guildID] = map[int64]domain.Message{}
	}
	return x.guilds[guildID], lock
}

// Add inserts or overwrites the snapshot under the message's guild. The
// guild lock is held only for the map mutation, never across I/O.
func (x *MemoryIndex) Add(msg domain.Message) {
	messages, lock := x.guildEntry(msg.GuildID)
	lock.Lock()
	messages[msg.ID] = msg
	lock.Unlock()
}

// RandomMessage copies the guild's snapshots under the lock, releases it,
// then filters and samples uniformly. When the chosen snapshot carries more
// than one attachment the returned copy keeps exactly one, chosen uniformly:
// a quote shows one image, not a gallery.
func (x *MemoryIndex) RandomMessage(guildID int64, pred Predicate) (domain.Message, error) {
	x.mu.RLock()
	messages, ok := x.guilds[guildID]
	lock := x.locks[guildID]
	x.mu.RUnlock()
	if !ok {
		return domain.Message{}, fmt.Errorf("guild %d: %w", guildID, domain.ErrGuildNotArchived)
	}

	lock.Lock()
	snapshot := make([]domain.Message, 0, len(messages))
	for _, msg := range messages {
		snapshot = append(snapshot, msg)
	}
	lock.Unlock()

	eligible := snapshot[:0]
	for _, msg := range snapshot {
		if pred == nil || pred(msg) {
			eligible = append(eligible, msg)
		}
	}
	if len(eligible) == 0 {
		return domain.Message{}, fmt.Errorf("guild %d: %w", guildID, domain.ErrNoEligibleMessages)
	}

	chosen := eligible[rand.IntN(len(eligible))]
	if len(chosen.Attachments) > 1 {
		one := chosen.Attachments[rand.IntN(len(chosen.Attachments))]
		chosen.Attachments = []domain.Attachment{one}
	}
	return chosen, nil
}

func (x *MemoryIndex) Count(guildID int64) int64 {
	x.mu.RLock()
	messages, ok := x.guilds[guildID]
	lock := x.locks[guildID]
	x.mu.RUnlock()
	if !ok {
		return 0
	}
	lock.Lock()
	defer lock.Unlock()
	return int64(len(messages))
}

func (x *MemoryIndex) Guilds() []int64 {
	x.mu.RLock()
	defer x.mu.RUnlock()
	ids := make([]int64, 0, len(x.guilds))
	for id := range x.guilds {
		ids = append(ids, id)
	}
	return ids
}
