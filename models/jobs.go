// models/jobs.go
package models

import "time"

// ProcessingJob is the queue payload for one uploaded video.
type ProcessingJob struct {
	JobID         string    `json:"job_id"`
	VideoID       string    `json:"video_id"`
	SourcePath    string    `json:"source_path"`
	SourceExt     string    `json:"source_ext"`
	ThumbnailPath string    `json:"thumbnail_path,omitempty"`
	ThumbnailExt  string    `json:"thumbnail_ext,omitempty"`
	Attempt       int       `json:"attempt"`
	CreatedAt     time.Time `json:"created_at"`
}

// ProcessingResult holds the committed asset locators of a finished job.
type ProcessingResult struct {
	VideoPath     string  `json:"video_path"`
	ThumbnailPath string  `json:"thumbnail_path"`
	Duration      float64 `json:"duration"`
	Width         int     `json:"width"`
	Height        int     `json:"height"`
}

// StatusEvent is published once a record leaves processing.
type StatusEvent struct {
	VideoID    string    `json:"video_id"`
	UploaderID string    `json:"uploader_id"`
	Status     Status    `json:"status"`
	Error      string    `json:"error,omitempty"`
	Duration   float64   `json:"duration,omitempty"`
	At         time.Time `json:"at"`
}

// JobOutcome is what the processing pool reports for each job.
type JobOutcome struct {
	JobID   string        `json:"job_id"`
	VideoID string        `json:"video_id"`
	Status  Status        `json:"status"`
	Err     error         `json:"-"`
	Elapsed time.Duration `json:"elapsed"`
	Settled bool          `json:"settled"`
}
