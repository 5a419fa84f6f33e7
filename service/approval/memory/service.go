package memory

import (
	"context"
	"sort"

	"github.com/shahfaizanali/manzoori/service/approval"
	"github.com/shahfaizanali/manzoori/service/dao"
	"github.com/shahfaizanali/manzoori/service/dao/store"
)

// service is the in-memory approval store. It layers queue semantics over
// the generic DAO store: descriptors are kept in insertion order and listed
// ascending by creation time.
type service struct {
	changes *store.MemoryStore[string, approval.Change]
}

// key selector - descriptors are stored by their ID.
func changeKey(c *approval.Change) string { return c.ID }

// New creates an empty in-memory approval store.
func New() approval.Store {
	return &service{
		changes: store.NewMemoryStore[string, approval.Change](changeKey),
	}
}

func (s *service) Append(ctx context.Context, change *approval.Change) error {
	if change == nil {
		return dao.ErrNilEntity
	}
	if change.ID == "" {
		return dao.ErrInvalidID
	}
	return s.changes.Save(ctx, change)
}

func (s *service) List(ctx context.Context) ([]*approval.Change, error) {
	all, err := s.changes.List(ctx)
	if err != nil {
		return nil, err
	}
	sortByCreation(all)
	return all, nil
}

func (s *service) ListPending(ctx context.Context, targetID string) ([]*approval.Change, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	pending := make([]*approval.Change, 0, len(all))
	for _, change := range all {
		if change.TargetID == targetID {
			pending = append(pending, change)
		}
	}
	return pending, nil
}

func (s *service) Lookup(ctx context.Context, id string) (*approval.Change, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	return s.changes.Load(ctx, id)
}

func (s *service) Remove(ctx context.Context, id string) error {
	return s.changes.Delete(ctx, id)
}

func (s *service) RemoveAll(ctx context.Context, targetID string) error {
	pending, err := s.ListPending(ctx, targetID)
	if err != nil {
		return err
	}
	for _, change := range pending {
		if err = s.changes.Delete(ctx, change.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) HasPending(ctx context.Context, targetID string) (bool, error) {
	pending, err := s.ListPending(ctx, targetID)
	if err != nil {
		return false, err
	}
	return len(pending) > 0, nil
}

// sortByCreation orders ascending by CreatedAt; insertion order breaks ties.
func sortByCreation(changes []*approval.Change) {
	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].CreatedAt.Before(changes[j].CreatedAt)
	})
}

var _ approval.Store = (*service)(nil)
