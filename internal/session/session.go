package session

import (
	"sync"

	"recTribeAPI/internal/types/recommendation"
	"recTribeAPI/internal/types/user"
)

// Session is the per-login context: the authenticated user plus the local
// mirrors of the recommendation set and the caller's engagement and friend
// sets. It is built on the first authenticated request and dropped on
// logout; nothing here is global.
type Session struct {
	User user.User

	mu        sync.Mutex
	recs      []*recommendation.Recommendation
	liked     map[string]bool
	completed map[string]bool
	friendIDs map[string]bool
}

func New(u user.User) *Session {
	return &Session{
		User:      u,
		liked:     make(map[string]bool),
		completed: make(map[string]bool),
		friendIDs: make(map[string]bool),
	}
}

// Snapshot returns copies of the four feed inputs so composition runs on a
// consistent view while remote syncs mutate the session.
func (s *Session) Snapshot() (recs []*recommendation.Recommendation, friendIDs, liked, completed map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs = make([]*recommendation.Recommendation, len(s.recs))
	for i, r := range s.recs {
		copied := *r
		recs[i] = &copied
	}
	return recs, copySet(s.friendIDs), copySet(s.liked), copySet(s.completed)
}

func (s *Session) SetRecs(recs []*recommendation.Recommendation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = recs
}

// PrependRec puts a newly created recommendation at the head, keeping the
// insertion-time-descending order feeds rely on.
func (s *Session) PrependRec(rec *recommendation.Recommendation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append([]*recommendation.Recommendation{rec}, s.recs...)
}

func (s *Session) RemoveRec(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.recs[:0]
	for _, r := range s.recs {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	s.recs = kept
	delete(s.liked, id)
	delete(s.completed, id)
}

func (s *Session) FindRec(id string) (recommendation.Recommendation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.recs {
		if r.ID == id {
			return *r, true
		}
	}
	return recommendation.Recommendation{}, false
}

func (s *Session) PatchRec(id string, patch *recommendation.Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.recs {
		if r.ID == id {
			patch.Apply(r)
			return
		}
	}
}

func (s *Session) Liked(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liked[id]
}

func (s *Session) SetLiked(id string, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	setMembership(s.liked, id, on)
}

func (s *Session) Completed(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed[id]
}

func (s *Session) SetCompleted(id string, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	setMembership(s.completed, id, on)
}

func (s *Session) SetEngagement(liked, completed map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liked = copySet(liked)
	s.completed = copySet(completed)
}

func (s *Session) SetFriendIDs(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.friendIDs = make(map[string]bool, len(ids))
	for _, id := range ids {
		s.friendIDs[id] = true
	}
}

func setMembership(set map[string]bool, id string, on bool) {
	if on {
		set[id] = true
	} else {
		delete(set, id)
	}
}

func copySet(set map[string]bool) map[string]bool {
	out := make(map[string]bool, len(set))
	for k := range set {
		out[k] = true
	}
	return out
}

// Manager tracks live sessions by uid.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

func (m *Manager) Get(uid string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[uid]
	return s, ok
}

func (m *Manager) Put(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.User.UID] = s
}

// Drop tears the session down on logout.
func (m *Manager) Drop(uid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, uid)
}
