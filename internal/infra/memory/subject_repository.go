package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quizzapp-service/internal/domain"
)

const listKey = "subjects"

// SubjectLoader fetches the full subject list from upstream or a backing store.
type SubjectLoader interface {
	LoadSubjects(ctx context.Context) ([]domain.Subject, error)
}

// SubjectRepository caches the subject list with TTL to avoid repeated upstream fetches.
// A zero TTL disables caching so every call reaches the loader.
type SubjectRepository struct {
	loader SubjectLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	subjects  []domain.Subject
	expiresAt time.Time
}

func NewSubjectRepository(loader SubjectLoader, ttl time.Duration) *SubjectRepository {
	return &SubjectRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *SubjectRepository) ListSubjects(ctx context.Context) ([]domain.Subject, error) {
	if subjects, ok := r.cached(r.clock()); ok {
		return subjects, nil
	}

	result, err, _ := r.sf.Do(listKey, func() (interface{}, error) {
		now := r.clock()
		if subjects, ok := r.cached(now); ok {
			return subjects, nil
		}

		subjects, err := r.loader.LoadSubjects(ctx)
		if err != nil {
			return nil, err
		}

		if r.ttl > 0 {
			r.mu.Lock()
			r.subjects = subjects
			r.expiresAt = now.Add(r.ttlWithJitter())
			r.mu.Unlock()
		}
		return subjects, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Subject), nil
}

func (r *SubjectRepository) GetSubject(ctx context.Context, subjectID string) (domain.Subject, error) {
	subjects, err := r.ListSubjects(ctx)
	if err != nil {
		return domain.Subject{}, err
	}
	return FindSubject(subjects, subjectID)
}

// Invalidate drops the cached list.
func (r *SubjectRepository) Invalidate() {
	r.mu.Lock()
	r.subjects = nil
	r.expiresAt = time.Time{}
	r.mu.Unlock()
}

func (r *SubjectRepository) cached(now time.Time) ([]domain.Subject, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.subjects != nil && r.expiresAt.After(now) {
		return r.subjects, true
	}
	return nil, false
}

func (r *SubjectRepository) ttlWithJitter() time.Duration {
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// FindSubject looks a subject up by id.
func FindSubject(subjects []domain.Subject, subjectID string) (domain.Subject, error) {
	for _, subject := range subjects {
		if subject.ID == subjectID {
			return subject, nil
		}
	}
	return domain.Subject{}, domain.ErrSubjectNotFound
}

// StaticSubjectLoader is a simple loader backed by a fixed list (useful for tests/demos).
type StaticSubjectLoader struct {
	subjects []domain.Subject
}

func NewStaticSubjectLoader(subjects []domain.Subject) *StaticSubjectLoader {
	return &StaticSubjectLoader{subjects: subjects}
}

func (l *StaticSubjectLoader) LoadSubjects(_ context.Context) ([]domain.Subject, error) {
	return l.subjects, nil
}
