package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ExamPaperKey returns the cache key for an exam's compound read (exam + questions)
func (r *CacheKeyStruct) ExamPaperKey(examID int) string {
	return fmt.Sprintf("exam:%d:paper", examID)
}

// ExamDeletedKey marks an exam as deleted so a paper read in flight cannot
// write it back into the cache
func (r *CacheKeyStruct) ExamDeletedKey(examID int) string {
	return fmt.Sprintf("exam:%d:deleted", examID)
}

// EventsChannel returns the Redis PubSub channel carrying exam/question change events
func (r *CacheKeyStruct) EventsChannel() string {
	return "papers:events"
}

var CacheKey = NewCacheKeyStruct()
