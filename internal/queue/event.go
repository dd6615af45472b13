// Package queue defines the image cleanup pipeline over the message
// broker. The database is always updated first; host-side deletions are
// published here and retried until the idempotent destroy succeeds, so a
// host outage can orphan a remote object at worst, never a database
// reference.
package queue

import "time"

// ImageCleanupEvent asks the consumer to delete the named images from the
// external image host after their rows were removed.
type ImageCleanupEvent struct {
	CampgroundID uint64    `json:"campground_id"`
	Filenames    []string  `json:"filenames"`
	RequestedAt  time.Time `json:"requested_at"`
}
