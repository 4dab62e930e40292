package memory

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/rsamesh/core"
	"github.com/hupe1980/rsamesh/embedding"
)

// Level identifies a store scale.
type Level string

const (
	// LevelFine holds per-response vectors.
	LevelFine Level = "fine"
	// LevelCommunity holds per-round aggregate vectors.
	LevelCommunity Level = "community"
)

// Metadata describes a fine entry.
type Metadata struct {
	AgentID        string    `json:"agent_id"`
	Round          int       `json:"round"`
	AggregatedFrom []int     `json:"aggregated_from,omitempty"`
	Preview        string    `json:"preview,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Entry is a stored vector with its metadata. Children is set on community
// entries and lists the fine keys that were summed, in order.
type Entry struct {
	Key      string
	Level    Level
	Vector   core.Vector
	Metadata Metadata
	Children []string
}

// Match is one QuerySimilar hit.
type Match struct {
	Key      string
	Score    float64
	Metadata Metadata
}

// FineKey returns the fine level key for agentID in round.
func FineKey(agentID string, round int) string {
	return fmt.Sprintf("%s_t%d", agentID, round)
}

// CommunityKey returns the community level key for round.
func CommunityKey(round int) string {
	return fmt.Sprintf("community_t%d", round)
}

type roundIndex struct {
	mu   sync.Mutex
	keys []string // fine keys in insertion order
}

type levels struct {
	fine      sync.Map // key -> *Entry
	community sync.Map // key -> *Entry
	rounds    sync.Map // round -> *roundIndex
	communMu  sync.Map // round -> *sync.Mutex
}

// Store is the in-memory multi-scale store. The zero value is not usable;
// call NewStore.
type Store struct {
	dim   int
	state atomic.Pointer[levels]
}

// NewStore creates a Store for vectors of length dim.
func NewStore(dim int) *Store {
	s := &Store{dim: dim}
	s.state.Store(&levels{})
	return s
}

// Dimensions returns the vector length accepted by the store.
func (s *Store) Dimensions() int { return s.dim }

func (s *Store) round(l *levels, round int) *roundIndex {
	v, _ := l.rounds.LoadOrStore(round, &roundIndex{})
	return v.(*roundIndex)
}

// Record inserts the fine vector for agentID in round. A second insert for
// the same key fails with *core.DuplicateRecordError.
func (s *Store) Record(agentID string, round int, v core.Vector, md Metadata) error {
	if len(v) != s.dim {
		return fmt.Errorf("%w: got %d, want %d", core.ErrDimensionMismatch, len(v), s.dim)
	}

	key := FineKey(agentID, round)
	md.AgentID = agentID
	md.Round = round
	if md.Timestamp.IsZero() {
		md.Timestamp = time.Now()
	}
	e := &Entry{Key: key, Level: LevelFine, Vector: v.Clone(), Metadata: md}

	l := s.state.Load()
	if _, loaded := l.fine.LoadOrStore(key, e); loaded {
		return &core.DuplicateRecordError{Level: string(LevelFine), Key: key}
	}

	idx := s.round(l, round)
	idx.mu.Lock()
	idx.keys = append(idx.keys, key)
	idx.mu.Unlock()

	return nil
}

// Has reports whether a fine entry exists for agentID in round.
func (s *Store) Has(agentID string, round int) bool {
	_, ok := s.state.Load().fine.Load(FineKey(agentID, round))
	return ok
}

// AggregateRound creates or extends the community entry of round with the
// fine vectors of agentIDs. The community vector is the elementwise sum of
// all its children. Missing fine entries yield core.ErrNotFound.
func (s *Store) AggregateRound(round int, agentIDs []string) error {
	l := s.state.Load()

	mv, _ := l.communMu.LoadOrStore(round, &sync.Mutex{})
	mu := mv.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	ckey := CommunityKey(round)

	var children []string
	if existing, ok := l.community.Load(ckey); ok {
		children = append(children, existing.(*Entry).Children...)
	}

	seen := make(map[string]bool, len(children)+len(agentIDs))
	for _, c := range children {
		seen[c] = true
	}
	for _, id := range agentIDs {
		key := FineKey(id, round)
		if seen[key] {
			continue
		}
		seen[key] = true
		children = append(children, key)
	}

	vectors := make([]core.Vector, 0, len(children))
	for _, key := range children {
		fv, ok := l.fine.Load(key)
		if !ok {
			return fmt.Errorf("aggregate round %d: %w: %s", round, core.ErrNotFound, key)
		}
		vectors = append(vectors, fv.(*Entry).Vector)
	}

	sum, err := embedding.Sum(vectors...)
	if err != nil {
		return fmt.Errorf("aggregate round %d: %w", round, err)
	}
	if len(sum) == 0 {
		sum = make(core.Vector, s.dim)
	}

	l.community.Store(ckey, &Entry{
		Key:      ckey,
		Level:    LevelCommunity,
		Vector:   sum,
		Metadata: Metadata{Round: round, Timestamp: time.Now()},
		Children: children,
	})

	return nil
}

func (s *Store) roundVectors(l *levels, round int) []core.Vector {
	v, ok := l.rounds.Load(round)
	if !ok {
		return nil
	}
	idx := v.(*roundIndex)

	idx.mu.Lock()
	keys := append([]string(nil), idx.keys...)
	idx.mu.Unlock()

	out := make([]core.Vector, 0, len(keys))
	for _, k := range keys {
		if e, ok := l.fine.Load(k); ok {
			out = append(out, e.(*Entry).Vector)
		}
	}
	return out
}

// Diversity returns the mean pairwise cosine distance among the fine vectors
// of round, in [0, 1]. Rounds with fewer than two vectors have diversity 0.
func (s *Store) Diversity(round int) float64 {
	d := embedding.MeanPairwiseDistance(s.roundVectors(s.state.Load(), round))
	return math.Max(0, math.Min(1, d))
}

// QuerySimilar ranks the entries of level by cosine similarity to v and
// returns at most topK matches, best first.
func (s *Store) QuerySimilar(v core.Vector, level Level, topK int) []Match {
	if topK <= 0 {
		return []Match{}
	}

	m, ok := s.levelMap(s.state.Load(), level)
	if !ok {
		return []Match{}
	}

	var matches []Match
	m.Range(func(_, value any) bool {
		e := value.(*Entry)
		matches = append(matches, Match{Key: e.Key, Score: embedding.Cosine(v, e.Vector), Metadata: e.Metadata})
		return true
	})

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].Key < matches[j].Key
		}
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	if matches == nil {
		matches = []Match{}
	}
	return matches
}

// Get returns a copy of the entry stored under key at level.
func (s *Store) Get(level Level, key string) (Entry, error) {
	m, ok := s.levelMap(s.state.Load(), level)
	if !ok {
		return Entry{}, fmt.Errorf("unknown level %q", level)
	}

	v, ok := m.Load(key)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s/%s", core.ErrNotFound, level, key)
	}

	e := *v.(*Entry)
	e.Vector = e.Vector.Clone()
	e.Children = append([]string(nil), e.Children...)
	e.Metadata.AggregatedFrom = append([]int(nil), e.Metadata.AggregatedFrom...)
	return e, nil
}

// Keys returns the sorted keys stored at level.
func (s *Store) Keys(level Level) []string {
	m, ok := s.levelMap(s.state.Load(), level)
	if !ok {
		return nil
	}

	var keys []string
	m.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries at level.
func (s *Store) Len(level Level) int {
	return len(s.Keys(level))
}

// Reset drops every entry. Operations racing with Reset observe either the
// old or the new contents.
func (s *Store) Reset() {
	s.state.Store(&levels{})
}

func (s *Store) levelMap(l *levels, level Level) (*sync.Map, bool) {
	switch level {
	case LevelFine:
		return &l.fine, true
	case LevelCommunity:
		return &l.community, true
	default:
		return nil, false
	}
}
