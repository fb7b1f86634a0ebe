package logs

// LogEntry is the client-submitted payload for one daily log.
type LogEntry struct {
	Email           string `json:"email"`
	TopicLearned    string `json:"topic_learned"`
	Day             string `json:"day"`
	JobsApplied     int    `json:"jobs_applied"`
	SubmissionsDone int    `json:"submissions_done"`
	WhatYouLearned  string `json:"what_you_learned"`
	RecruiterName   string `json:"recruiter_name"`
}

// LogRecord is the stored JSON document for one submitter on one day.
// The storage key (date, email) is an idempotent-overwrite identifier:
// re-ingestion for the same submitter-day replaces the prior record.
type LogRecord struct {
	Email              string `json:"email"`
	TopicLearned       string `json:"topic_learned"`
	Day                string `json:"day"`
	JobsApplied        int    `json:"jobs_applied"`
	SubmissionsDone    int    `json:"submissions_done"`
	WhatYouLearned     string `json:"what_you_learned"`
	RecruiterName      string `json:"recruiter_name"`
	Date               string `json:"date"`
	AttachmentKey      string `json:"attachment_key,omitempty"`
	AttachmentFilename string `json:"attachment_filename,omitempty"`
}

// OwnedLog is a stored record decorated with a fresh attachment URL for
// the submitter's own history view.
type OwnedLog struct {
	LogRecord
	AttachmentURL *string `json:"attachment_url"`
}

// CreateResult reports where an ingested log landed.
type CreateResult struct {
	Path               string
	AttachmentURL      string
	AttachmentFilename string
}

// DailySnapshot is one record's contribution to a submitter's history.
type DailySnapshot struct {
	Date               string  `json:"date"`
	Day                string  `json:"day"`
	TopicLearned       string  `json:"topic_learned"`
	WhatYouLearned     string  `json:"what_you_learned"`
	JobsApplied        int     `json:"jobs_applied"`
	SubmissionsDone    int     `json:"submissions_done"`
	RecruiterName      string  `json:"recruiter_name"`
	AttachmentURL      *string `json:"attachment_url"`
	AttachmentFilename *string `json:"attachment_filename"`
}

// SubmitterAggregate holds per-submitter running totals plus a snapshot
// of the chronologically latest record.
type SubmitterAggregate struct {
	Email                  string          `json:"email"`
	TotalJobs              int             `json:"total_jobs"`
	TotalSubmissions       int             `json:"total_submissions"`
	LatestTopicLearned     string          `json:"latest_topic_learned"`
	CurrentDay             string          `json:"current_day"`
	LastReflection         string          `json:"last_reflection"`
	LastRecruiter          string          `json:"last_recruiter"`
	LastAttachmentURL      *string         `json:"last_attachment_url"`
	LastAttachmentFilename *string         `json:"last_attachment_filename"`
	LastUpdate             string          `json:"last_update"`
	DailyLogs              []DailySnapshot `json:"daily_logs"`
}

// TopPerformer is the submitter with the highest submission count among
// today's records.
type TopPerformer struct {
	Email              string  `json:"email"`
	SubmissionsDone    int     `json:"submissions_done"`
	JobsApplied        int     `json:"jobs_applied"`
	TopicLearned       string  `json:"topic_learned"`
	WhatYouLearned     string  `json:"what_you_learned"`
	RecruiterName      string  `json:"recruiter_name"`
	Day                string  `json:"day"`
	Date               string  `json:"date"`
	AttachmentURL      *string `json:"attachment_url"`
	AttachmentFilename *string `json:"attachment_filename"`
}
