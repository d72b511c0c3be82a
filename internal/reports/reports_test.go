package reports

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clubhub/internal/db"
	"clubhub/internal/model"
	"clubhub/internal/testdb"
)

func TestMain(m *testing.M) {
	code := m.Run()
	testdb.Terminate()
	os.Exit(code)
}

func TestComputeRate(t *testing.T) {
	stats := AttendanceStats{Total: 3, Present: 1, Late: 1, Absent: 1}
	stats.computeRate()
	assert.Equal(t, 33.33, stats.AttendanceRate)

	late := AttendanceStats{Total: 2, Present: 1, Late: 1}
	late.computeRate()
	assert.Equal(t, 50.0, late.AttendanceRate)

	empty := AttendanceStats{}
	empty.computeRate()
	assert.Zero(t, empty.AttendanceRate)
}

func TestRoundTwo(t *testing.T) {
	assert.Equal(t, 83.33, roundTwo(250.0/3))
	assert.Equal(t, 0.67, roundTwo(2.0/3))
	assert.Equal(t, 100.0, roundTwo(100))
}

func TestUserAttendanceAndOverview(t *testing.T) {
	store := testdb.Store(t)
	ctx := context.Background()
	r := New(store.Pool)

	exec, err := store.Queries.CreateUser(ctx, db.CreateUserParams{
		Email: "exec@club.test", PasswordHash: "x", FirstName: "E", LastName: "X", Role: model.RoleExecutive,
	})
	require.NoError(t, err)
	member, err := store.Queries.CreateUser(ctx, db.CreateUserParams{
		Email: "member@club.test", PasswordHash: "x", FirstName: "M", LastName: "X", Role: model.RoleMember,
	})
	require.NoError(t, err)

	regular, err := store.Queries.CreateUser(ctx, db.CreateUserParams{
		Email: "regular@club.test", PasswordHash: "x", FirstName: "R", LastName: "X", Role: model.RoleMember,
	})
	require.NoError(t, err)

	base := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)
	statuses := []string{model.AttendancePresent, model.AttendanceLate, model.AttendanceAbsent}
	activityIDs := make([]string, 0, len(statuses))
	for i, status := range statuses {
		start := base.AddDate(0, 0, 7*i)
		activityID, err := store.Queries.CreateActivity(ctx, exec.ID, db.ActivityParams{
			Title:       "Weekly meeting",
			Description: "Regular club meeting",
			Type:        "meeting",
			Status:      model.ActivityCompleted,
			IsPublic:    true,
			StartDate:   start,
			EndDate:     start.Add(time.Hour),
		})
		require.NoError(t, err)
		activityIDs = append(activityIDs, activityID)
		_, err = store.Queries.UpsertAttendance(ctx, db.UpsertAttendanceParams{
			UserID: member.ID, ActivityID: activityID, Status: status, MarkedBy: exec.ID,
		})
		require.NoError(t, err)
	}
	_, err = store.Queries.UpsertAttendance(ctx, db.UpsertAttendanceParams{
		UserID: regular.ID, ActivityID: activityIDs[0], Status: model.AttendancePresent, MarkedBy: exec.ID,
	})
	require.NoError(t, err)

	stats, err := r.UserAttendance(ctx, member.ID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Present)
	assert.Equal(t, 1, stats.Late)
	assert.Equal(t, 1, stats.Absent)
	assert.Equal(t, 33.33, stats.AttendanceRate)

	from := base.AddDate(0, 0, 1)
	stats, err = r.UserAttendance(ctx, member.ID, &from, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)

	overview, err := r.AttendanceOverview(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, overview.Stats.Total)
	assert.Equal(t, 2, overview.Stats.Present)
	assert.Equal(t, 50.0, overview.Stats.AttendanceRate)
	assert.Equal(t, 2, overview.Stats.UniqueParticipants)
	assert.Equal(t, 3, overview.Stats.Activities)

	require.Len(t, overview.TopParticipants, 2)
	assert.Equal(t, regular.ID, overview.TopParticipants[0].UserID)
	assert.Equal(t, 100.0, overview.TopParticipants[0].AttendanceRate)
	assert.Equal(t, member.ID, overview.TopParticipants[1].UserID)
	assert.Equal(t, 33.33, overview.TopParticipants[1].AttendanceRate)

	require.Len(t, overview.PopularActivities, 3)
	assert.Equal(t, activityIDs[0], overview.PopularActivities[0].ActivityID)
	assert.Equal(t, 100.0, overview.PopularActivities[0].AttendanceRate)
	assert.Equal(t, 2, overview.PopularActivities[0].PresentCount)

	windowed, err := r.AttendanceOverview(ctx, &from, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, windowed.Stats.Total)
	assert.Equal(t, 1, windowed.Stats.UniqueParticipants)
	assert.Zero(t, windowed.Stats.AttendanceRate)
	require.Len(t, windowed.TopParticipants, 1)
	assert.Equal(t, member.ID, windowed.TopParticipants[0].UserID)
	assert.Len(t, windowed.PopularActivities, 2)

	users, err := r.UserOverview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, users.Total)
	assert.Equal(t, 1, users.Executives)
	assert.Equal(t, 2, users.Members)
	require.Len(t, users.Monthly, 1)
	assert.Equal(t, 3, users.Monthly[0].Count)
}

func TestMembershipStats(t *testing.T) {
	store := testdb.Store(t)
	ctx := context.Background()
	r := New(store.Pool)

	for _, email := range []string{"a@club.test", "b@club.test"} {
		_, err := store.Queries.CreateMembershipRequest(ctx, db.CreateMembershipRequestParams{
			Email: email, FirstName: "A", LastName: "B",
		})
		require.NoError(t, err)
	}
	requests, err := r.MembershipRequests(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, requests.Total)
	assert.Equal(t, 2, requests.Recent)
	require.Len(t, requests.ByStatus, 1)
	assert.Equal(t, model.MembershipPending, requests.ByStatus[0].Status)

	_, err = store.Queries.CreateMembershipApplication(ctx, db.CreateMembershipApplicationParams{
		FirstName: "Grace", LastName: "Hopper", Email: "grace@club.test",
		Motivation: "I would like to help organise workshops and share what I learn with other members.",
	})
	require.NoError(t, err)
	apps, err := r.MembershipApplications(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, apps.Total)
	assert.Equal(t, 1, apps.Pending)
	assert.Zero(t, apps.Approved)
	assert.Len(t, apps.Monthly, 1)
}
