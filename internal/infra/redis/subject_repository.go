package redis

import (
	"bytes"
	"context"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizzapp-service/internal/domain"
	"quizzapp-service/internal/infra/memory"
	"quizzapp-service/internal/subjects"
)

const subjectsKey = "quizzapp:subjects"

// SubjectRepository caches the upstream subject list in Redis (one JSON string)
// and falls back to the loader on cache miss.
type SubjectRepository struct {
	client *redis.Client
	loader memory.SubjectLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewSubjectRepository(client *redis.Client, loader memory.SubjectLoader, ttl time.Duration) *SubjectRepository {
	return &SubjectRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *SubjectRepository) ListSubjects(ctx context.Context) ([]domain.Subject, error) {
	if cached, ok := r.fromCache(ctx); ok {
		return cached, nil
	}

	result, err, _ := r.sf.Do(subjectsKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if cached, ok := r.fromCache(ctx); ok {
			return cached, nil
		}

		list, err := r.loader.LoadSubjects(ctx)
		if err != nil {
			return nil, err
		}

		if r.ttl > 0 {
			var buf bytes.Buffer
			if err := subjects.Encode(&buf, list); err == nil {
				_ = r.client.Set(ctx, subjectsKey, buf.Bytes(), r.ttlWithJitter()).Err()
			}
		}
		return list, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Subject), nil
}

func (r *SubjectRepository) GetSubject(ctx context.Context, subjectID string) (domain.Subject, error) {
	list, err := r.ListSubjects(ctx)
	if err != nil {
		return domain.Subject{}, err
	}
	return memory.FindSubject(list, subjectID)
}

// Invalidate removes the cached list so the next read reaches the loader.
func (r *SubjectRepository) Invalidate(ctx context.Context) error {
	return r.client.Del(ctx, subjectsKey).Err()
}

func (r *SubjectRepository) fromCache(ctx context.Context) ([]domain.Subject, bool) {
	raw, err := r.client.Get(ctx, subjectsKey).Bytes()
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	list, err := subjects.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, false
	}
	return list, true
}

func (r *SubjectRepository) ttlWithJitter() time.Duration {
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
