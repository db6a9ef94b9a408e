package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/tendant/upload-relay/pkg/uploadrelay"
)

// Repository implements uploadrelay.Repository using in-memory storage
type Repository struct {
	mu           sync.RWMutex
	files        map[string]*uploadrelay.FileRecord // key -> record
	byCustomID   map[string]string                  // custom id -> key
	creationSeq  map[string]int64                   // key -> insertion order, tie-breaker for equal timestamps
	nextSequence int64
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		files:       make(map[string]*uploadrelay.FileRecord),
		byCustomID:  make(map[string]string),
		creationSeq: make(map[string]int64),
	}
}

// CreateIfAbsent inserts the record unless the key is taken. First
// registration wins; an existing record is returned untouched.
func (r *Repository) CreateIfAbsent(ctx context.Context, record *uploadrelay.FileRecord) (*uploadrelay.FileRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.files[record.Key]; ok {
		existingCopy := *existing
		return &existingCopy, false, nil
	}

	recordCopy := *record
	r.files[record.Key] = &recordCopy
	if record.CustomID != "" {
		r.byCustomID[record.CustomID] = record.Key
	}
	r.nextSequence++
	r.creationSeq[record.Key] = r.nextSequence

	stored := recordCopy
	return &stored, true, nil
}

// Update replaces the record identified by record.Key
func (r *Repository) Update(ctx context.Context, record *uploadrelay.FileRecord) (*uploadrelay.FileRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.files[record.Key]
	if !ok {
		return nil, uploadrelay.ErrFileNotFound
	}

	if existing.CustomID != "" {
		delete(r.byCustomID, existing.CustomID)
	}

	recordCopy := *record
	r.files[record.Key] = &recordCopy
	if record.CustomID != "" {
		r.byCustomID[record.CustomID] = record.Key
	}

	updated := recordCopy
	return &updated, nil
}

// FindByIdentifier resolves a record by key or custom ID
func (r *Repository) FindByIdentifier(ctx context.Context, identifier string) (*uploadrelay.FileRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if record, ok := r.files[identifier]; ok {
		recordCopy := *record
		return &recordCopy, nil
	}
	if key, ok := r.byCustomID[identifier]; ok {
		if record, ok := r.files[key]; ok {
			recordCopy := *record
			return &recordCopy, nil
		}
	}
	return nil, uploadrelay.ErrFileNotFound
}

// List returns records ordered by creation time, newest first, plus the
// total count matching the filter
func (r *Repository) List(ctx context.Context, filter uploadrelay.ListFilter) ([]*uploadrelay.FileRecord, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matching := make([]*uploadrelay.FileRecord, 0, len(r.files))
	for _, record := range r.files {
		if !statusMatches(record.Status, filter.Statuses) {
			continue
		}
		matching = append(matching, record)
	}

	sort.Slice(matching, func(i, j int) bool {
		a, b := matching[i], matching[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return r.creationSeq[a.Key] > r.creationSeq[b.Key]
	})

	total := int64(len(matching))

	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matching) {
		return []*uploadrelay.FileRecord{}, total, nil
	}
	matching = matching[offset:]

	if filter.Limit > 0 && filter.Limit < len(matching) {
		matching = matching[:filter.Limit]
	}

	page := make([]*uploadrelay.FileRecord, len(matching))
	for i, record := range matching {
		recordCopy := *record
		page[i] = &recordCopy
	}
	return page, total, nil
}

// DeleteByKeys removes records by key and returns the count removed
func (r *Repository) DeleteByKeys(ctx context.Context, keys ...string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for _, key := range keys {
		record, ok := r.files[key]
		if !ok {
			continue
		}
		if record.CustomID != "" {
			delete(r.byCustomID, record.CustomID)
		}
		delete(r.files, key)
		delete(r.creationSeq, key)
		removed++
	}
	return removed, nil
}

// SumSize returns the aggregate declared size of records in the given
// statuses (all records when none are given)
func (r *Repository) SumSize(ctx context.Context, statuses ...uploadrelay.FileStatus) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sum int64
	for _, record := range r.files {
		if !statusMatches(record.Status, statuses) {
			continue
		}
		sum += record.Size
	}
	return sum, nil
}

func statusMatches(status uploadrelay.FileStatus, statuses []uploadrelay.FileStatus) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, s := range statuses {
		if status == s {
			return true
		}
	}
	return false
}
