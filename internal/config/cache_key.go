package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// PaperQuestionSetKey returns the cache key for a paper's resolved question set
func (r *CacheKeyStruct) PaperQuestionSetKey(paperRef string) string {
	return fmt.Sprintf("paper:%s:question_set", paperRef)
}

// SessionStatsKey returns the hash key for a session's settlement aggregates
func (r *CacheKeyStruct) SessionStatsKey(sessionID string) string {
	return fmt.Sprintf("session:%s:stats", sessionID)
}

// ExpirySweepLeaseKey returns the leader-lease key for the expiry sweep
func (r *CacheKeyStruct) ExpirySweepLeaseKey() string {
	return "expiry_sweep:lease"
}

var CacheKey = NewCacheKeyStruct()
