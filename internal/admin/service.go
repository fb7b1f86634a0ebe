// Package admin computes reporting views over the structured database:
// overview counters, per-student breakdowns, a top-20 leaderboard and
// role management. The grouping keys and sort orders mirror the
// object-store analytics pass, just pushed down into database
// aggregation pipelines.
package admin

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

const (
	leaderboardLimit = 20
	studentListLimit = 1000
)

// Error taxonomy for admin operations.
var (
	// ErrNotFound signals the referenced user does not exist.
	ErrNotFound = errors.New("admin: not found")
	// ErrValidation covers malformed management requests.
	ErrValidation = errors.New("admin: validation failed")
	// ErrDatabase covers query and aggregation failures.
	ErrDatabase = errors.New("admin: database operation failed")

	errMissingUsers      = errors.New("user store is required")
	errMissingActivities = errors.New("activity store is required")
)

// UserStore is the user-collection surface the reporting service needs.
type UserStore interface {
	CountByRole(ctx context.Context, role string) (int64, error)
	FindByRole(ctx context.Context, role string, limit int64) ([]User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	UpdateRoleByEmail(ctx context.Context, email, role string) error
}

// ActivityStore is the activity-collection surface: grouped sums,
// latest-row lookups and per-user listings.
type ActivityStore interface {
	Totals(ctx context.Context) (Totals, error)
	TotalsForUser(ctx context.Context, userID string) (Totals, error)
	LatestForUser(ctx context.Context, userID string) (*Activity, error)
	ListForUser(ctx context.Context, userID string, limit int64) ([]Activity, error)
	Leaderboard(ctx context.Context, limit int64) ([]UserTotals, error)
}

// ServiceConfig describes the reporting service dependencies.
type ServiceConfig struct {
	Users      UserStore
	Activities ActivityStore
	Logger     *zap.Logger
}

// Service assembles admin reporting views.
type Service struct {
	users      UserStore
	activities ActivityStore
	logger     *zap.Logger
}

// NewService constructs the reporting service with validated dependencies.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Users == nil {
		return nil, errMissingUsers
	}
	if cfg.Activities == nil {
		return nil, errMissingActivities
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{users: cfg.Users, activities: cfg.Activities, logger: logger}, nil
}

// Overview returns the student count plus grand totals over all activity.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	students, err := s.users.CountByRole(ctx, "student")
	if err != nil {
		return Overview{}, fmt.Errorf("%w: count students: %v", ErrDatabase, err)
	}

	totals, err := s.activities.Totals(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("%w: activity totals: %v", ErrDatabase, err)
	}

	return Overview{
		ActiveStudents:   students,
		TotalJobsApplied: totals.TotalJobs,
		TotalSubmissions: totals.TotalSubmissions,
	}, nil
}

// Students returns one summary row per student: running totals and the
// date of the latest activity.
func (s *Service) Students(ctx context.Context) ([]StudentSummary, error) {
	students, err := s.users.FindByRole(ctx, "student", studentListLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: find students: %v", ErrDatabase, err)
	}

	summaries := make([]StudentSummary, 0, len(students))
	for _, student := range students {
		latest, err := s.activities.LatestForUser(ctx, student.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: latest activity for %s: %v", ErrDatabase, student.ID, err)
		}

		totals, err := s.activities.TotalsForUser(ctx, student.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: totals for %s: %v", ErrDatabase, student.ID, err)
		}

		var lastActivity *string
		if latest != nil {
			date := latest.Date
			lastActivity = &date
		}

		summaries = append(summaries, StudentSummary{
			ID:               student.ID,
			Name:             student.Name,
			Email:            student.Email,
			TotalJobsApplied: totals.TotalJobs,
			TotalSubmissions: totals.TotalSubmissions,
			LastActivity:     lastActivity,
			CreatedAt:        student.CreatedAt,
		})
	}

	return summaries, nil
}

// StudentLogs returns one student's activity rows, newest first.
func (s *Service) StudentLogs(ctx context.Context, studentID string) (StudentProfile, []StudentLog, error) {
	student, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		return StudentProfile{}, nil, fmt.Errorf("%w: find student: %v", ErrDatabase, err)
	}
	if student == nil {
		return StudentProfile{}, nil, fmt.Errorf("%w: student %s", ErrNotFound, studentID)
	}

	activities, err := s.activities.ListForUser(ctx, studentID, studentListLimit)
	if err != nil {
		return StudentProfile{}, nil, fmt.Errorf("%w: list activity: %v", ErrDatabase, err)
	}

	rows := make([]StudentLog, 0, len(activities))
	for _, activity := range activities {
		rows = append(rows, StudentLog{
			ID:              activity.ID,
			Date:            activity.Date,
			JobsApplied:     activity.JobsApplied,
			SubmissionsDone: activity.SubmissionsDone,
			Remarks:         activity.Remarks,
			Mood:            activity.Mood,
			CreatedAt:       activity.CreatedAt,
		})
	}

	profile := StudentProfile{ID: student.ID, Name: student.Name, Email: student.Email}
	return profile, rows, nil
}

// Leaderboard returns the top submitters by total jobs applied, joined
// with user names. Totals whose user document is gone are skipped.
func (s *Service) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	totals, err := s.activities.Leaderboard(ctx, leaderboardLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: leaderboard: %v", ErrDatabase, err)
	}

	entries := make([]LeaderboardEntry, 0, len(totals))
	for _, row := range totals {
		user, err := s.users.FindByID(ctx, row.UserID)
		if err != nil {
			return nil, fmt.Errorf("%w: find user %s: %v", ErrDatabase, row.UserID, err)
		}
		if user == nil {
			continue
		}
		entries = append(entries, LeaderboardEntry{
			ID:               row.UserID,
			Name:             user.Name,
			Email:            user.Email,
			TotalJobsApplied: row.TotalJobs,
			TotalSubmissions: row.TotalSubmissions,
		})
	}

	return entries, nil
}

// ManageAdmin grants or revokes the admin role for an existing user.
// Revocation returns the account to the student role.
func (s *Service) ManageAdmin(ctx context.Context, email, action string) (string, error) {
	if action != "add" && action != "remove" {
		return "", fmt.Errorf("%w: action must be 'add' or 'remove'", ErrValidation)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("%w: find user: %v", ErrDatabase, err)
	}
	if user == nil {
		return "", fmt.Errorf("%w: user %s", ErrNotFound, email)
	}

	if action == "add" {
		if err := s.users.UpdateRoleByEmail(ctx, email, "admin"); err != nil {
			return "", fmt.Errorf("%w: update role: %v", ErrDatabase, err)
		}
		s.logger.Info("admin role granted", zap.String("email", email))
		return fmt.Sprintf("%s is now an admin", email), nil
	}

	if err := s.users.UpdateRoleByEmail(ctx, email, "student"); err != nil {
		return "", fmt.Errorf("%w: update role: %v", ErrDatabase, err)
	}
	s.logger.Info("admin role revoked", zap.String("email", email))
	return fmt.Sprintf("%s removed from admin", email), nil
}
