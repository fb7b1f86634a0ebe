package admin

import "time"

// User is one account in the users collection.
type User struct {
	ID        string
	Name      string
	Email     string
	Role      string
	CreatedAt time.Time
}

// Activity is one row in the daily activity collection.
type Activity struct {
	ID              string
	UserID          string
	Date            string
	JobsApplied     int
	SubmissionsDone int
	Remarks         string
	Mood            string
	CreatedAt       time.Time
}

// Totals is a grouped sum over activity rows.
type Totals struct {
	TotalJobs        int
	TotalSubmissions int
}

// UserTotals is a leaderboard row before the user join.
type UserTotals struct {
	UserID           string
	TotalJobs        int
	TotalSubmissions int
}

// Overview is the headline counters for the admin dashboard.
type Overview struct {
	ActiveStudents   int64 `json:"active_students"`
	TotalJobsApplied int   `json:"total_jobs_applied"`
	TotalSubmissions int   `json:"total_submissions"`
}

// StudentSummary is one per-student breakdown row.
type StudentSummary struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	TotalJobsApplied int       `json:"total_jobs_applied"`
	TotalSubmissions int       `json:"total_submissions"`
	LastActivity     *string   `json:"last_activity"`
	CreatedAt        time.Time `json:"created_at"`
}

// StudentProfile identifies the student a log listing belongs to.
type StudentProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// StudentLog is one activity row in a per-student listing.
type StudentLog struct {
	ID              string    `json:"id"`
	Date            string    `json:"date"`
	JobsApplied     int       `json:"jobs_applied"`
	SubmissionsDone int       `json:"submissions_done"`
	Remarks         string    `json:"remarks"`
	Mood            string    `json:"mood"`
	CreatedAt       time.Time `json:"created_at"`
}

// LeaderboardEntry is one joined leaderboard row.
type LeaderboardEntry struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	TotalJobsApplied int    `json:"total_jobs_applied"`
	TotalSubmissions int    `json:"total_submissions"`
}
