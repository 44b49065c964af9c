package tickets

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"storefront-bot/storage"

	"go.uber.org/zap"
)

const storeKey = "tickets"

type document struct {
	Version int       `json:"version"`
	Counter int       `json:"counter"`
	Tickets []*Ticket `json:"tickets"`
}

// Store owns every ticket record. The whole collection is written back on
// each mutation; records are never deleted.
type Store struct {
	kv     storage.KV
	logger *zap.Logger

	mu        sync.Mutex
	loaded    bool
	counter   int
	byID      map[string]*Ticket
	byChannel map[string]*Ticket
}

func NewStore(kv storage.KV, logger *zap.Logger) *Store {
	return &Store{
		kv:        kv,
		logger:    logger.Named("ticketstore"),
		byID:      make(map[string]*Ticket),
		byChannel: make(map[string]*Ticket),
	}
}

// Load reads the collection. A missing or corrupt document starts empty. A
// backend failure is returned and the next call retries.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *Store) loadLocked(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	var doc document
	err := s.kv.Load(ctx, storeKey, &doc)
	switch {
	case err == nil, errors.Is(err, storage.ErrNotFound):
	case errors.Is(err, storage.ErrCorrupt):
		s.logger.Warn("ticket collection corrupt, starting empty", zap.Error(err))
		doc = document{}
	default:
		return fmt.Errorf("load tickets: %w", err)
	}

	s.counter = doc.Counter
	for _, t := range doc.Tickets {
		if t == nil {
			continue
		}
		s.byID[t.ID] = t
		if t.ChannelID != "" {
			s.byChannel[t.ChannelID] = t
		}
		if t.Number > s.counter {
			s.counter = t.Number
		}
	}
	s.loaded = true
	return nil
}

func (s *Store) persistLocked(ctx context.Context) error {
	all := make([]*Ticket, 0, len(s.byID))
	for _, t := range s.byID {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Number < all[j].Number })

	doc := document{Version: 1, Counter: s.counter, Tickets: all}
	if err := s.kv.Save(ctx, storeKey, doc); err != nil {
		return fmt.Errorf("save tickets: %w", err)
	}
	return nil
}

// readLocked loads for a read path. On failure the caller sees an empty
// collection for this call only.
func (s *Store) readLocked(ctx context.Context) {
	if err := s.loadLocked(ctx); err != nil {
		s.logger.Warn("ticket collection unavailable", zap.Error(err))
	}
}

// Create assigns the next sequential ID and persists t. It fails when the
// creator already has an open ticket in the same guild.
func (s *Store) Create(ctx context.Context, t Ticket) (*Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return nil, err
	}

	if existing := s.openForUserLocked(t.GuildID, t.UserID); existing != nil {
		return nil, &DuplicateOpenTicketError{Existing: existing.clone()}
	}

	s.counter++
	t.Number = s.counter
	t.ID = FormatID(t.Number)
	rec := t.clone()
	s.byID[rec.ID] = rec
	if rec.ChannelID != "" {
		s.byChannel[rec.ChannelID] = rec
	}

	if err := s.persistLocked(ctx); err != nil {
		delete(s.byID, rec.ID)
		delete(s.byChannel, rec.ChannelID)
		s.counter--
		return nil, err
	}
	return rec.clone(), nil
}

// Save persists the full current state of t.
func (s *Store) Save(ctx context.Context, t *Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(ctx); err != nil {
		return err
	}

	prev, ok := s.byID[t.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, t.ID)
	}
	rec := t.clone()
	s.byID[t.ID] = rec
	if prev.ChannelID != rec.ChannelID {
		delete(s.byChannel, prev.ChannelID)
	}
	if rec.ChannelID != "" {
		s.byChannel[rec.ChannelID] = rec
	}

	if err := s.persistLocked(ctx); err != nil {
		s.byID[t.ID] = prev
		delete(s.byChannel, rec.ChannelID)
		if prev.ChannelID != "" {
			s.byChannel[prev.ChannelID] = prev
		}
		return err
	}
	return nil
}

// Get returns a copy of the ticket, or nil.
func (s *Store) Get(ctx context.Context, id string) *Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readLocked(ctx)
	if t, ok := s.byID[id]; ok {
		return t.clone()
	}
	return nil
}

// GetByChannel returns a copy of the ticket bound to channelID, or nil.
func (s *Store) GetByChannel(ctx context.Context, channelID string) *Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readLocked(ctx)
	if t, ok := s.byChannel[channelID]; ok {
		return t.clone()
	}
	return nil
}

// OpenForUser returns the user's open ticket in guildID, or nil.
func (s *Store) OpenForUser(ctx context.Context, guildID, userID string) *Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readLocked(ctx)
	if t := s.openForUserLocked(guildID, userID); t != nil {
		return t.clone()
	}
	return nil
}

func (s *Store) openForUserLocked(guildID, userID string) *Ticket {
	for _, t := range s.byID {
		if t.GuildID == guildID && t.UserID == userID && !t.Closed {
			return t
		}
	}
	return nil
}

// Filter returns copies of every ticket matching keep, ordered by number.
func (s *Store) Filter(ctx context.Context, keep func(*Ticket) bool) []*Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readLocked(ctx)

	var out []*Ticket
	for _, t := range s.byID {
		if keep(t) {
			out = append(out, t.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}
