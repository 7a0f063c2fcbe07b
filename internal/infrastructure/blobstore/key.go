package blobstore

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BuildEventKey constructs the storage key for a raw OTLP export body,
// time-partitioned by UTC hour so that lifecycle/retention policies and
// ad-hoc inspection can operate on date-prefixed ranges:
//
//	events/otel/{projectId}/{yyyy}/{mm}/{dd}/{hh}/{uuid}.json
func BuildEventKey(projectID string, now time.Time) string {
	now = now.UTC()
	return fmt.Sprintf("events/otel/%s/%04d/%02d/%02d/%02d/%s.json",
		projectID, now.Year(), now.Month(), now.Day(), now.Hour(), uuid.NewString())
}
