package invitation

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Invitation{}, &Participant{}))
	return NewService(NewRepository(db), zap.NewNop())
}

func validInput() *CreateInput {
	return &CreateInput{
		EventName:       "World hopping night",
		StartTime:       time.Now().Add(24 * time.Hour),
		EndTime:         time.Now().Add(27 * time.Hour),
		WorldName:       "The Great Pug",
		Tag:             TagTourism,
		Description:     "Casual world hopping, everyone welcome.",
		InstanceType:    InstancePublic,
		MaxParticipants: 3,
	}
}

func mustCreate(t *testing.T, svc *Service, id string, in *CreateInput) *Invitation {
	t.Helper()
	inv, err := svc.Create(context.Background(), id, "thread-"+id, "host-1", "Host", in)
	require.NoError(t, err)
	return inv
}

func TestCreate(t *testing.T) {
	svc := newTestService(t)
	inv := mustCreate(t, svc, "msg-1", validInput())

	assert.Equal(t, StatusRecruiting, inv.Status)
	assert.Equal(t, "msg-1", inv.ID)
	assert.Nil(t, inv.WorldLink)
	assert.Nil(t, inv.StaffID)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"missing event name", func(in *CreateInput) { in.EventName = "" }},
		{"event name with newline", func(in *CreateInput) { in.EventName = "two\nlines" }},
		{"end before start", func(in *CreateInput) { in.EndTime = in.StartTime.Add(-time.Hour) }},
		{"bad world link", func(in *CreateInput) { in.WorldLink = "https://example.com/wrld_abc" }},
		{"bad tag", func(in *CreateInput) { in.Tag = "party" }},
		{"bad instance type", func(in *CreateInput) { in.InstanceType = "invite-plus" }},
		{"friend without profile", func(in *CreateInput) { in.InstanceType = InstanceFriend }},
		{"bad profile url", func(in *CreateInput) {
			in.InstanceType = InstanceFriend
			in.VRChatProfile = "https://vrchat.com/home/world/wrld_abc"
		}},
		{"zero capacity", func(in *CreateInput) { in.MaxParticipants = 0 }},
		{"over capacity", func(in *CreateInput) { in.MaxParticipants = 101 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(in)
			_, err := svc.Create(ctx, "msg-x", "thread-x", "host-1", "Host", in)
			require.Error(t, err)
			assert.NotEmpty(t, ValidationMessages(err))
		})
	}
}

func TestJoin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, "msg-1", validInput())

	res, err := svc.Join(ctx, "msg-1", "user-1", "Alice")
	require.NoError(t, err)
	assert.False(t, res.BecameFull)

	counts, err := svc.Counts(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Joined)
}

func TestJoinDuplicate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, "msg-1", validInput())

	_, err := svc.Join(ctx, "msg-1", "user-1", "Alice")
	require.NoError(t, err)

	_, err = svc.Join(ctx, "msg-1", "user-1", "Alice")
	assert.ErrorIs(t, err, ErrAlreadyJoined)

	counts, err := svc.Counts(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Joined)
}

func TestJoinFillsToCapacity(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, "msg-1", validInput()) // capacity 3

	for n := 1; n <= 2; n++ {
		res, err := svc.Join(ctx, "msg-1", fmt.Sprintf("user-%d", n), "User")
		require.NoError(t, err)
		assert.False(t, res.BecameFull)
	}

	res, err := svc.Join(ctx, "msg-1", "user-3", "User")
	require.NoError(t, err)
	assert.True(t, res.BecameFull)
	assert.Equal(t, StatusFull, res.Invitation.Status)

	_, err = svc.Join(ctx, "msg-1", "user-4", "User")
	assert.ErrorIs(t, err, ErrNotRecruiting)

	counts, err := svc.Counts(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, 3, counts.Joined)
}

func TestJoinSingleSlot(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	in := validInput()
	in.MaxParticipants = 1
	mustCreate(t, svc, "msg-1", in)

	res, err := svc.Join(ctx, "msg-1", "user-1", "Alice")
	require.NoError(t, err)
	assert.True(t, res.BecameFull)

	_, err = svc.Join(ctx, "msg-1", "user-2", "Bob")
	assert.ErrorIs(t, err, ErrNotRecruiting)

	reverted, err := svc.CancelParticipation(ctx, "msg-1", "user-1")
	require.NoError(t, err)
	assert.True(t, reverted)

	res, err = svc.Join(ctx, "msg-1", "user-2", "Bob")
	require.NoError(t, err)
	assert.True(t, res.BecameFull)
}

func TestInterestedThenJoin(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, "msg-1", validInput())

	require.NoError(t, svc.MarkInterested(ctx, "msg-1", "user-1", "Alice"))

	err := svc.MarkInterested(ctx, "msg-1", "user-1", "Alice")
	assert.ErrorIs(t, err, ErrAlreadyInterested)

	_, err = svc.Join(ctx, "msg-1", "user-1", "Alice")
	require.NoError(t, err)

	counts, err := svc.Counts(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Joined)
	assert.Equal(t, 0, counts.Interested)
}

func TestInterestedOnFull(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	in := validInput()
	in.MaxParticipants = 1
	mustCreate(t, svc, "msg-1", in)

	_, err := svc.Join(ctx, "msg-1", "user-1", "Alice")
	require.NoError(t, err)

	// Full invitations still collect interest.
	require.NoError(t, svc.MarkInterested(ctx, "msg-1", "user-2", "Bob"))
}

func TestCancelParticipation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, "msg-1", validInput())

	_, err := svc.CancelParticipation(ctx, "msg-1", "user-1")
	assert.ErrorIs(t, err, ErrNotParticipant)

	_, err = svc.Join(ctx, "msg-1", "user-1", "Alice")
	require.NoError(t, err)

	reverted, err := svc.CancelParticipation(ctx, "msg-1", "user-1")
	require.NoError(t, err)
	assert.False(t, reverted)

	counts, err := svc.Counts(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, 0, counts.Joined)
}

func TestCancelParticipationReopensFull(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	in := validInput()
	in.MaxParticipants = 2
	mustCreate(t, svc, "msg-1", in)

	_, err := svc.Join(ctx, "msg-1", "user-1", "Alice")
	require.NoError(t, err)
	res, err := svc.Join(ctx, "msg-1", "user-2", "Bob")
	require.NoError(t, err)
	require.True(t, res.BecameFull)

	reverted, err := svc.CancelParticipation(ctx, "msg-1", "user-2")
	require.NoError(t, err)
	assert.True(t, reverted)

	inv, err := svc.Get(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, StatusRecruiting, inv.Status)
}

func TestEdit(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, "msg-1", validInput())

	name := "Renamed night"
	inv, err := svc.Edit(ctx, "msg-1", "host-1", &UpdateInput{EventName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed night", inv.EventName)
}

func TestEditNotHost(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, "msg-1", validInput())

	name := "Hijacked"
	_, err := svc.Edit(ctx, "msg-1", "user-1", &UpdateInput{EventName: &name})
	assert.ErrorIs(t, err, ErrNotHost)
}

func TestEditScheduleOrder(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	inv := mustCreate(t, svc, "msg-1", validInput())

	// Moving the start past the existing end must be rejected.
	late := inv.EndTime.Add(time.Hour)
	_, err := svc.Edit(ctx, "msg-1", "host-1", &UpdateInput{StartTime: &late})
	assert.ErrorIs(t, err, ErrScheduleOrder)
}

func TestCancelEvent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, "msg-1", validInput())

	_, err := svc.CancelEvent(ctx, "msg-1", "user-1")
	assert.ErrorIs(t, err, ErrNotHost)

	inv, err := svc.CancelEvent(ctx, "msg-1", "host-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, inv.Status)

	_, err = svc.CancelEvent(ctx, "msg-1", "host-1")
	assert.ErrorIs(t, err, ErrTerminal)
}

func TestTerminalRejectsParticipation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, "msg-1", validInput())

	_, err := svc.CancelEvent(ctx, "msg-1", "host-1")
	require.NoError(t, err)

	_, err = svc.Join(ctx, "msg-1", "user-1", "Alice")
	assert.ErrorIs(t, err, ErrNotRecruiting)

	err = svc.MarkInterested(ctx, "msg-1", "user-1", "Alice")
	assert.ErrorIs(t, err, ErrClosed)

	name := "Too late"
	_, err = svc.Edit(ctx, "msg-1", "host-1", &UpdateInput{EventName: &name})
	assert.ErrorIs(t, err, ErrTerminal)
}

func groupInput() *CreateInput {
	in := validInput()
	in.InstanceType = InstanceGroup
	return in
}

func TestAssignStaff(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, "msg-1", groupInput())

	inv, err := svc.AssignStaff(ctx, "msg-1", "staff-1", "Carol")
	require.NoError(t, err)
	require.NotNil(t, inv.StaffID)
	assert.Equal(t, "staff-1", *inv.StaffID)
	assert.Equal(t, "Carol", *inv.StaffName)
}

func TestAssignStaffFirstComeFirstServed(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, "msg-1", groupInput())

	_, err := svc.AssignStaff(ctx, "msg-1", "staff-1", "Carol")
	require.NoError(t, err)

	current, err := svc.AssignStaff(ctx, "msg-1", "staff-2", "Dave")
	assert.ErrorIs(t, err, ErrStaffAssigned)
	// The loser learns who won.
	require.NotNil(t, current)
	require.NotNil(t, current.StaffName)
	assert.Equal(t, "Carol", *current.StaffName)
}

func TestAssignStaffNonGroup(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, "msg-1", validInput())

	_, err := svc.AssignStaff(ctx, "msg-1", "staff-1", "Carol")
	assert.ErrorIs(t, err, ErrNotGroupInstance)
}

func TestSetInstanceLink(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, "msg-1", groupInput())

	_, err := svc.Join(ctx, "msg-1", "user-1", "Alice")
	require.NoError(t, err)
	require.NoError(t, svc.MarkInterested(ctx, "msg-1", "user-2", "Bob"))

	_, err = svc.AssignStaff(ctx, "msg-1", "staff-1", "Carol")
	require.NoError(t, err)

	link := InstanceLinkPrefix + "wrld_abc123~group(grp_1)"

	_, _, err = svc.SetInstanceLink(ctx, "msg-1", "staff-2", link)
	assert.ErrorIs(t, err, ErrNotAssignedStaff)

	_, _, err = svc.SetInstanceLink(ctx, "msg-1", "staff-1", "https://example.com/instance")
	assert.ErrorIs(t, err, ErrInvalidLink)

	inv, notify, err := svc.SetInstanceLink(ctx, "msg-1", "staff-1", link)
	require.NoError(t, err)
	require.NotNil(t, inv.InstanceLink)
	assert.Equal(t, link, *inv.InstanceLink)

	// Only joined participants get the link, not interested ones.
	require.Len(t, notify, 1)
	assert.Equal(t, "user-1", notify[0].UserID)
}

func TestAutoCloseDue(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	past := validInput()
	past.StartTime = time.Now().Add(-3 * time.Hour)
	past.EndTime = time.Now().Add(-time.Hour)
	require.NoError(t, svc.repo.Create(ctx, &Invitation{
		ID: "msg-past", ThreadID: "thread-past", HostID: "host-1", HostName: "Host",
		EventName: past.EventName, StartTime: past.StartTime, EndTime: past.EndTime,
		WorldName: past.WorldName, Tag: past.Tag, Description: past.Description,
		InstanceType: past.InstanceType, MaxParticipants: past.MaxParticipants,
		Status: StatusRecruiting,
	}))
	mustCreate(t, svc, "msg-future", validInput())

	closed, err := svc.AutoCloseDue(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, "msg-past", closed[0].ID)
	assert.Equal(t, StatusCompleted, closed[0].Status)

	// A second run finds nothing left to close.
	closed, err = svc.AutoCloseDue(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, closed)

	inv, err := svc.Get(ctx, "msg-future")
	require.NoError(t, err)
	assert.Equal(t, StatusRecruiting, inv.Status)
}

func TestRemindersOnce(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, "msg-1", validInput()) // starts in 24h

	due, err := svc.RemindersDue(ctx, time.Now(), 36*time.Hour)
	require.NoError(t, err)
	require.Len(t, due, 1)

	require.NoError(t, svc.MarkReminded(ctx, "msg-1", time.Now()))

	due, err = svc.RemindersDue(ctx, time.Now(), 36*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestRemindersWindow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, "msg-1", validInput()) // starts in 24h

	// Outside the lead window nothing is due.
	due, err := svc.RemindersDue(ctx, time.Now(), time.Hour)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestOpenCount(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, "msg-1", validInput())
	mustCreate(t, svc, "msg-2", validInput())

	n, err := svc.OpenCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = svc.CancelEvent(ctx, "msg-1", "host-1")
	require.NoError(t, err)

	n, err = svc.OpenCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestGetNotFound(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
