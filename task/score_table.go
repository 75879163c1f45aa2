package task

import (
	"github.com/BaSui01/planflow/allocation"
	"github.com/BaSui01/planflow/types"
)

// ScoreTable is a parallel-array index from task identity to allocation
// result. It is built fresh for every aggregation or distribution and is not
// modified afterwards, so readers need no locking.
type ScoreTable struct {
	ids     []ID
	results []*allocation.Result
	pos     map[ID]int
}

// NewScoreTable builds a table from parallel id and result slices.
func NewScoreTable(ids []ID, results []*allocation.Result) (*ScoreTable, error) {
	if len(ids) != len(results) {
		return nil, types.Errorf(types.ErrLengthMismatch,
			"score table has %d ids and %d results", len(ids), len(results))
	}
	st := &ScoreTable{
		ids:     make([]ID, len(ids)),
		results: make([]*allocation.Result, len(results)),
		pos:     make(map[ID]int, len(ids)),
	}
	copy(st.ids, ids)
	copy(st.results, results)
	for i, id := range st.ids {
		if _, dup := st.pos[id]; dup {
			return nil, types.Errorf(types.ErrAlreadyExists, "task %s appears twice in score table", id)
		}
		st.pos[id] = i
	}
	return st, nil
}

// Snapshot builds a table from the current results of tasks.
func Snapshot(tasks []Task) *ScoreTable {
	st := &ScoreTable{
		ids:     make([]ID, 0, len(tasks)),
		results: make([]*allocation.Result, 0, len(tasks)),
		pos:     make(map[ID]int, len(tasks)),
	}
	for _, t := range tasks {
		if _, dup := st.pos[t.ID()]; dup {
			continue
		}
		st.pos[t.ID()] = len(st.ids)
		st.ids = append(st.ids, t.ID())
		st.results = append(st.results, t.CurrentResult())
	}
	return st
}

// Len returns the number of entries.
func (s *ScoreTable) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}

// IDAt returns the identity at position i.
func (s *ScoreTable) IDAt(i int) ID { return s.ids[i] }

// ResultAt returns the result at position i; it may be nil.
func (s *ScoreTable) ResultAt(i int) *allocation.Result { return s.results[i] }

// IDs returns a copy of the identities in order.
func (s *ScoreTable) IDs() []ID {
	out := make([]ID, len(s.ids))
	copy(out, s.ids)
	return out
}

// Results returns a copy of the results in order.
func (s *ScoreTable) Results() []*allocation.Result {
	out := make([]*allocation.Result, len(s.results))
	copy(out, s.results)
	return out
}

// Index returns the position of id or -1.
func (s *ScoreTable) Index(id ID) int {
	if i, ok := s.pos[id]; ok {
		return i
	}
	return -1
}

// Result returns the result recorded for id. ok is false when id is not in
// the table; a present id may still map to a nil result.
func (s *ScoreTable) Result(id ID) (r *allocation.Result, ok bool) {
	i, ok := s.pos[id]
	if !ok {
		return nil, false
	}
	return s.results[i], true
}

// Complete reports whether every entry has a result.
func (s *ScoreTable) Complete() bool {
	for _, r := range s.results {
		if r == nil {
			return false
		}
	}
	return true
}
