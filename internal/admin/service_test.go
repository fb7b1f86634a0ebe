package admin

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubUserStore struct {
	usersByID    map[string]User
	usersByEmail map[string]User
	countByRole  map[string]int64
	roleUpdates  map[string]string
	findErr      error
}

func (s *stubUserStore) CountByRole(_ context.Context, role string) (int64, error) {
	if s.findErr != nil {
		return 0, s.findErr
	}
	return s.countByRole[role], nil
}

func (s *stubUserStore) FindByRole(_ context.Context, role string, _ int64) ([]User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	users := make([]User, 0)
	for _, user := range s.usersByID {
		if user.Role == role {
			users = append(users, user)
		}
	}
	return users, nil
}

func (s *stubUserStore) FindByID(_ context.Context, id string) (*User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	user, ok := s.usersByID[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (s *stubUserStore) FindByEmail(_ context.Context, email string) (*User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	user, ok := s.usersByEmail[email]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (s *stubUserStore) UpdateRoleByEmail(_ context.Context, email, role string) error {
	if s.roleUpdates == nil {
		s.roleUpdates = map[string]string{}
	}
	s.roleUpdates[email] = role
	return nil
}

type stubActivityStore struct {
	totals       Totals
	totalsByUser map[string]Totals
	latestByUser map[string]*Activity
	listByUser   map[string][]Activity
	leaderboard  []UserTotals
	queryErr     error
}

func (s *stubActivityStore) Totals(context.Context) (Totals, error) {
	if s.queryErr != nil {
		return Totals{}, s.queryErr
	}
	return s.totals, nil
}

func (s *stubActivityStore) TotalsForUser(_ context.Context, userID string) (Totals, error) {
	if s.queryErr != nil {
		return Totals{}, s.queryErr
	}
	return s.totalsByUser[userID], nil
}

func (s *stubActivityStore) LatestForUser(_ context.Context, userID string) (*Activity, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.latestByUser[userID], nil
}

func (s *stubActivityStore) ListForUser(_ context.Context, userID string, _ int64) ([]Activity, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.listByUser[userID], nil
}

func (s *stubActivityStore) Leaderboard(context.Context, int64) ([]UserTotals, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.leaderboard, nil
}

func newTestService(t *testing.T, users UserStore, activities ActivityStore) *Service {
	t.Helper()
	service, err := NewService(ServiceConfig{Users: users, Activities: activities})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	return service
}

func TestOverviewCombinesCountsAndTotals(t *testing.T) {
	users := &stubUserStore{countByRole: map[string]int64{"student": 7}}
	activities := &stubActivityStore{totals: Totals{TotalJobs: 42, TotalSubmissions: 17}}
	service := newTestService(t, users, activities)

	overview, err := service.Overview(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if overview.ActiveStudents != 7 {
		t.Fatalf("unexpected student count %d", overview.ActiveStudents)
	}
	if overview.TotalJobsApplied != 42 || overview.TotalSubmissions != 17 {
		t.Fatalf("unexpected totals: %+v", overview)
	}
}

func TestOverviewReportsDatabaseFailure(t *testing.T) {
	users := &stubUserStore{findErr: errors.New("connection reset")}
	service := newTestService(t, users, &stubActivityStore{})

	_, err := service.Overview(context.Background())
	if !errors.Is(err, ErrDatabase) {
		t.Fatalf("expected database error, got %v", err)
	}
}

func TestStudentsAssemblesSummaries(t *testing.T) {
	created := time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)
	users := &stubUserStore{
		usersByID: map[string]User{
			"u1": {ID: "u1", Name: "Alice", Email: "alice@example.com", Role: "student", CreatedAt: created},
		},
	}
	activities := &stubActivityStore{
		totalsByUser: map[string]Totals{"u1": {TotalJobs: 5, TotalSubmissions: 3}},
		latestByUser: map[string]*Activity{"u1": {UserID: "u1", Date: "2026-08-29"}},
	}
	service := newTestService(t, users, activities)

	summaries, err := service.Students(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected 1 summary, got %d", len(summaries))
	}
	summary := summaries[0]
	if summary.TotalJobsApplied != 5 || summary.TotalSubmissions != 3 {
		t.Fatalf("unexpected totals: %+v", summary)
	}
	if summary.LastActivity == nil || *summary.LastActivity != "2026-08-29" {
		t.Fatalf("unexpected last activity: %v", summary.LastActivity)
	}
}

func TestStudentsWithoutActivityHaveNullLastActivity(t *testing.T) {
	users := &stubUserStore{
		usersByID: map[string]User{
			"u1": {ID: "u1", Name: "Alice", Email: "alice@example.com", Role: "student"},
		},
	}
	service := newTestService(t, users, &stubActivityStore{})

	summaries, err := service.Students(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summaries[0].LastActivity != nil {
		t.Fatalf("expected null last activity, got %v", *summaries[0].LastActivity)
	}
}

func TestStudentLogsUnknownStudent(t *testing.T) {
	service := newTestService(t, &stubUserStore{}, &stubActivityStore{})

	_, _, err := service.StudentLogs(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestStudentLogsReturnsProfileAndRows(t *testing.T) {
	users := &stubUserStore{
		usersByID: map[string]User{
			"u1": {ID: "u1", Name: "Alice", Email: "alice@example.com", Role: "student"},
		},
	}
	activities := &stubActivityStore{
		listByUser: map[string][]Activity{
			"u1": {
				{ID: "l2", UserID: "u1", Date: "2026-08-29", JobsApplied: 2, SubmissionsDone: 1, Mood: "good"},
				{ID: "l1", UserID: "u1", Date: "2026-08-28", JobsApplied: 1, SubmissionsDone: 4},
			},
		},
	}
	service := newTestService(t, users, activities)

	profile, rows, err := service.StudentLogs(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.Email != "alice@example.com" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
	if len(rows) != 2 || rows[0].ID != "l2" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestLeaderboardJoinsUsersAndSkipsMissing(t *testing.T) {
	users := &stubUserStore{
		usersByID: map[string]User{
			"u1": {ID: "u1", Name: "Alice", Email: "alice@example.com"},
		},
	}
	activities := &stubActivityStore{
		leaderboard: []UserTotals{
			{UserID: "u1", TotalJobs: 10, TotalSubmissions: 4},
			{UserID: "ghost", TotalJobs: 99, TotalSubmissions: 99},
		},
	}
	service := newTestService(t, users, activities)

	entries, err := service.Leaderboard(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("totals without a user document must be skipped, got %+v", entries)
	}
	if entries[0].Name != "Alice" || entries[0].TotalJobsApplied != 10 {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
}

func TestManageAdminValidatesAction(t *testing.T) {
	service := newTestService(t, &stubUserStore{}, &stubActivityStore{})

	_, err := service.ManageAdmin(context.Background(), "alice@example.com", "promote")
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestManageAdminUnknownUser(t *testing.T) {
	service := newTestService(t, &stubUserStore{}, &stubActivityStore{})

	_, err := service.ManageAdmin(context.Background(), "ghost@example.com", "add")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestManageAdminAddAndRemove(t *testing.T) {
	users := &stubUserStore{
		usersByEmail: map[string]User{
			"alice@example.com": {ID: "u1", Email: "alice@example.com", Role: "student"},
		},
	}
	service := newTestService(t, users, &stubActivityStore{})

	if _, err := service.ManageAdmin(context.Background(), "alice@example.com", "add"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if users.roleUpdates["alice@example.com"] != "admin" {
		t.Fatalf("expected admin role grant, got %v", users.roleUpdates)
	}

	if _, err := service.ManageAdmin(context.Background(), "alice@example.com", "remove"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if users.roleUpdates["alice@example.com"] != "student" {
		t.Fatalf("expected role reset to student, got %v", users.roleUpdates)
	}
}
