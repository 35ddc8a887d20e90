package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/code-payments/token-wrapper/pkg/database/query"
	"github.com/code-payments/token-wrapper/pkg/reserve"
)

type store struct {
	mu        sync.Mutex
	records   []*reserve.Snapshot
	lastIndex uint64
}

type byCreatedAt []*reserve.Snapshot

func (a byCreatedAt) Len() int      { return len(a) }
func (a byCreatedAt) Swap(i, j int) { a[i], a[j] = a[j], a[i] }
func (a byCreatedAt) Less(i, j int) bool {
	if a[i].CreatedAt.Equal(a[j].CreatedAt) {
		return a[i].Id < a[j].Id
	}
	return a[i].CreatedAt.Before(a[j].CreatedAt)
}

type byUnderlyingMint []*reserve.Snapshot

func (a byUnderlyingMint) Len() int           { return len(a) }
func (a byUnderlyingMint) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a byUnderlyingMint) Less(i, j int) bool { return a[i].UnderlyingMint < a[j].UnderlyingMint }

// New returns a new in memory reserve.Store
func New() reserve.Store {
	return &store{}
}

func (s *store) reset() {
	s.mu.Lock()
	s.records = nil
	s.lastIndex = 0
	s.mu.Unlock()
}

func (s *store) Put(_ context.Context, data *reserve.Snapshot) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.records {
		if item.RunId == data.RunId && item.UnderlyingMint == data.UnderlyingMint {
			return reserve.ErrExists
		}
	}

	s.lastIndex++
	data.Id = s.lastIndex

	s.records = append(s.records, data.Clone())

	return nil
}

func (s *store) GetLatest(_ context.Context, underlyingMint string) (*reserve.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.findByMint(underlyingMint)
	if len(items) == 0 {
		return nil, reserve.ErrNotFound
	}

	sort.Sort(byCreatedAt(items))
	return items[len(items)-1].Clone(), nil
}

func (s *store) GetAllByMint(_ context.Context, underlyingMint string, ordering query.Ordering, limit uint64) ([]*reserve.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.findByMint(underlyingMint)
	if len(items) == 0 {
		return nil, reserve.ErrNotFound
	}

	sorted := byCreatedAt(items)
	if ordering == query.Descending {
		sort.Sort(sort.Reverse(sorted))
	} else {
		sort.Sort(sorted)
	}

	if limit > 0 && uint64(len(items)) > limit {
		items = items[:limit]
	}

	return cloneAll(items), nil
}

func (s *store) GetByRun(_ context.Context, runId string) ([]*reserve.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []*reserve.Snapshot
	for _, item := range s.records {
		if item.RunId == runId {
			items = append(items, item)
		}
	}

	if len(items) == 0 {
		return nil, reserve.ErrNotFound
	}

	sort.Sort(byUnderlyingMint(items))
	return cloneAll(items), nil
}

func (s *store) findByMint(underlyingMint string) []*reserve.Snapshot {
	var res []*reserve.Snapshot
	for _, item := range s.records {
		if item.UnderlyingMint == underlyingMint {
			res = append(res, item)
		}
	}
	return res
}

func cloneAll(items []*reserve.Snapshot) []*reserve.Snapshot {
	res := make([]*reserve.Snapshot, len(items))
	for i, item := range items {
		res[i] = item.Clone()
	}
	return res
}
