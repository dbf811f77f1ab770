package store

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"jobmatch-workers/internal/common/errors"
	"jobmatch-workers/internal/common/logger"
	"jobmatch-workers/internal/models"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

// CandidateStore loads candidate profiles, read-through cached in Redis.
type CandidateStore struct {
	db     *sql.DB
	cache  redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

// NewCandidateStore returns a store that skips caching when cache is nil.
func NewCandidateStore(db *sql.DB, cache redis.Cmdable, ttl time.Duration, log logger.Logger) *CandidateStore {
	return &CandidateStore{
		db:     db,
		cache:  cache,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "candidate_store"}),
	}
}

func candidateCacheKey(candidateID string) string {
	return "candidate:profile:" + candidateID
}

func (s *CandidateStore) GetCandidate(ctx context.Context, candidateID string) (*models.CandidateProfile, error) {
	key := candidateCacheKey(candidateID)
	if s.cache != nil {
		if val, err := s.cache.Get(ctx, key).Result(); err == nil {
			var profile models.CandidateProfile
			if err := json.Unmarshal([]byte(val), &profile); err == nil {
				return &profile, nil
			}
		}
	}

	var (
		profile                          models.CandidateProfile
		skills                           pq.StringArray
		experience, education, prefsJSON []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, skills, experience, education, has_resume, preferences
		FROM candidates WHERE id = $1`, candidateID).
		Scan(&profile.ID, &profile.UserID, &skills, &experience, &education, &profile.HasResume, &prefsJSON)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewCandidateNotFoundError(candidateID)
	}
	if err != nil {
		return nil, queryError(ctx, "get_candidate", err)
	}

	profile.Skills = []string(skills)
	decodeJSONColumn(experience, &profile.Experience)
	decodeJSONColumn(education, &profile.Education)
	decodeJSONColumn(prefsJSON, &profile.Preferences)

	if s.cache != nil {
		data, _ := json.Marshal(profile)
		if err := s.cache.Set(ctx, key, data, s.ttl).Err(); err != nil {
			s.logger.Warn("candidate cache write failed", map[string]interface{}{
				"candidateId": candidateID,
				"error":       err.Error(),
			})
		}
	}
	return &profile, nil
}

// decodeJSONColumn leaves dst untouched for NULL or malformed JSON.
func decodeJSONColumn(raw []byte, dst interface{}) {
	if len(raw) == 0 {
		return
	}
	_ = json.Unmarshal(raw, dst)
}
