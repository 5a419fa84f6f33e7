package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"

	"github.com/shahfaizanali/manzoori/service/approval"
	"github.com/shahfaizanali/manzoori/service/dao"
)

// Service implements a filesystem-backed approval store. Each descriptor is
// one JSON file under the base URL; any scheme supported by afs works
// (plain paths, file://, mem://, s3://, ...).
type Service struct {
	baseURL string
	fs      afs.Service
	mu      sync.RWMutex
}

// Ensure Service implements approval.Store
var _ approval.Store = (*Service)(nil)

// Append persists a new pending descriptor.
func (s *Service) Append(ctx context.Context, change *approval.Change) error {
	if change == nil {
		return dao.ErrNilEntity
	}
	if change.ID == "" {
		return dao.ErrInvalidID
	}
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal change %v: %w", change.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	location := s.changePath(change.ID)
	if err = s.fs.Upload(ctx, location, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to save change to %v: %w", location, err)
	}
	return nil
}

// List returns every queued descriptor ascending by creation time.
func (s *Service) List(ctx context.Context) ([]*approval.Change, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(ctx)
}

// ListPending returns the target's queue ascending by creation time.
func (s *Service) ListPending(ctx context.Context, targetID string) ([]*approval.Change, error) {
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

// Lookup returns a descriptor by ID, or nil when absent.
func (s *Service) Lookup(ctx context.Context, id string) (*approval.Change, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	location := s.changePath(id)
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to check change %v: %w", id, err)
	}
	if !exists {
		return nil, nil
	}
	data, err := s.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read change %v: %w", id, err)
	}
	change := &approval.Change{}
	if err = json.Unmarshal(data, change); err != nil {
		return nil, fmt.Errorf("failed to unmarshal change %v: %w", id, err)
	}
	return change, nil
}

// Remove deletes one descriptor; removing an absent ID is a no-op.
func (s *Service) Remove(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(ctx, id)
}

// RemoveAll deletes every descriptor queued for the target.
func (s *Service) RemoveAll(ctx context.Context, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	all, err := s.list(ctx)
	if err != nil {
		return err
	}
	for _, change := range all {
		if change.TargetID != targetID {
			continue
		}
		if err = s.remove(ctx, change.ID); err != nil {
			return err
		}
	}
	return nil
}

// HasPending reports whether the target has queued descriptors.
func (s *Service) HasPending(ctx context.Context, targetID string) (bool, error) {
	pending, err := s.ListPending(ctx, targetID)
	if err != nil {
		return false, err
	}
	return len(pending) > 0, nil
}

func (s *Service) list(ctx context.Context) ([]*approval.Change, error) {
	exists, err := s.fs.Exists(ctx, s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to check store at %v: %w", s.baseURL, err)
	}
	if !exists { // nothing appended yet
		return []*approval.Change{}, nil
	}
	objects, err := s.fs.List(ctx, s.baseURL, option.NewRecursive(true))
	if err != nil {
		return nil, fmt.Errorf("failed to list changes at %v: %w", s.baseURL, err)
	}
	changes := make([]*approval.Change, 0, len(objects))
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		data, err := s.fs.Download(ctx, object)
		if err != nil {
			return nil, fmt.Errorf("failed to read change file %v: %w", object.URL(), err)
		}
		change := &approval.Change{}
		if err = json.Unmarshal(data, change); err != nil {
			return nil, fmt.Errorf("failed to unmarshal change file %v: %w", object.URL(), err)
		}
		changes = append(changes, change)
	}
	sort.SliceStable(changes, func(i, j int) bool {
		return changes[i].CreatedAt.Before(changes[j].CreatedAt)
	})
	return changes, nil
}

func (s *Service) remove(ctx context.Context, id string) error {
	location := s.changePath(id)
	exists, err := s.fs.Exists(ctx, location)
	if err != nil {
		return fmt.Errorf("failed to check change %v: %w", id, err)
	}
	if !exists {
		return nil
	}
	if err = s.fs.Delete(ctx, location); err != nil {
		return fmt.Errorf("failed to delete change %v: %w", id, err)
	}
	return nil
}

// changePath returns the file location for a descriptor.
func (s *Service) changePath(id string) string {
	return path.Join(s.baseURL, fmt.Sprintf("%s.json", id))
}

// New creates a filesystem-backed approval store rooted at baseURL.
func New(baseURL string) (*Service, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	return &Service{
		baseURL: baseURL,
		fs:      afs.New(),
	}, nil
}
