package player

import (
	"slices"
	"strings"
	"sync"
)

// Registry owns the sessions of all guilds, at most one per guild.
type Registry struct {
	cfg Config

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(cfg Config) *Registry {
	return &Registry{
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns the guild's session, creating it if needed. created
// is true only for the caller that inserted it.
func (r *Registry) GetOrCreate(guildID, voiceChannelID, textChannelID string) (s *Session, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[guildID]; ok {
		return s, false
	}
	s = NewSession(guildID, voiceChannelID, textChannelID, r.cfg)
	r.sessions[guildID] = s
	s.log.Info().Str("voice_channel_id", voiceChannelID).Msg("session created")
	return s, true
}

// Get never creates a session.
func (r *Registry) Get(guildID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[guildID]
	return s, ok
}

// Remove detaches and stops the guild's session. It reports whether there
// was one; removing an absent guild is a no-op.
func (r *Registry) Remove(guildID string) bool {
	r.mu.Lock()
	s, ok := r.sessions[guildID]
	delete(r.sessions, guildID)
	r.mu.Unlock()

	if !ok {
		return false
	}
	s.Stop()
	return true
}

// RemoveSession removes s only if it is still the guild's session.
func (r *Registry) RemoveSession(s *Session) bool {
	r.mu.Lock()
	cur, ok := r.sessions[s.GuildID]
	if ok && cur == s {
		delete(r.sessions, s.GuildID)
	}
	r.mu.Unlock()

	s.Stop()
	return ok && cur == s
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Snapshot lists every session ordered by guild id.
func (r *Registry) Snapshot() []Snapshot {
	r.mu.Lock()
	list := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		list = append(list, s)
	}
	r.mu.Unlock()

	out := make([]Snapshot, 0, len(list))
	for _, s := range list {
		out = append(out, s.Snapshot())
	}
	slices.SortFunc(out, func(a, b Snapshot) int {
		return strings.Compare(a.GuildID, b.GuildID)
	})
	return out
}

// Shutdown stops every session.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	list := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		list = append(list, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range list {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Stop()
		}()
	}
	wg.Wait()
}
