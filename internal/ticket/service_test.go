package ticket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testDeletionDelay = 5 * time.Minute

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Ticket{}))
	return NewService(NewRepository(db), testDeletionDelay, zap.NewNop())
}

func mustOpen(t *testing.T, svc *Service, channelID, userID string) *Ticket {
	t.Helper()
	tk, err := svc.Create(context.Background(), channelID, userID, "Alice", &CreateInput{
		Category:    CategoryQuestion,
		Description: "How do I join a group instance?",
	})
	require.NoError(t, err)
	return tk
}

func TestCreate(t *testing.T) {
	svc := newTestService(t)
	tk := mustOpen(t, svc, "chan-1", "user-1")

	assert.Equal(t, StatusOpen, tk.Status)
	assert.Equal(t, CategoryQuestion, tk.Category)
	assert.Nil(t, tk.ScheduledDeletionAt)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "chan-1", "user-1", "Alice", &CreateInput{
		Category:    "billing",
		Description: "hi",
	})
	assert.Error(t, err)

	_, err = svc.Create(ctx, "chan-1", "user-1", "Alice", &CreateInput{
		Category: CategoryOther,
	})
	assert.Error(t, err)
}

func TestCreateOnePerUser(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	first := mustOpen(t, svc, "chan-1", "user-1")

	existing, err := svc.Create(ctx, "chan-2", "user-1", "Alice", &CreateInput{
		Category:    CategoryTrouble,
		Description: "Another issue",
	})
	assert.ErrorIs(t, err, ErrAlreadyOpen)
	require.NotNil(t, existing)
	assert.Equal(t, first.ID, existing.ID)

	// A different user is unaffected.
	mustOpen(t, svc, "chan-3", "user-2")
}

func TestCloseByRequester(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustOpen(t, svc, "chan-1", "user-1")

	tk, err := svc.Close(ctx, "chan-1", "user-1", false)
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, tk.Status)
	require.NotNil(t, tk.ClosedAt)
	require.NotNil(t, tk.ScheduledDeletionAt)
	assert.WithinDuration(t, tk.ClosedAt.Add(testDeletionDelay), *tk.ScheduledDeletionAt, time.Second)
}

func TestCloseByStaff(t *testing.T) {
	svc := newTestService(t)
	mustOpen(t, svc, "chan-1", "user-1")

	tk, err := svc.Close(context.Background(), "chan-1", "staff-1", true)
	require.NoError(t, err)
	assert.Equal(t, StatusClosed, tk.Status)
	require.NotNil(t, tk.ClosedBy)
	assert.Equal(t, "staff-1", *tk.ClosedBy)
}

func TestClosePermission(t *testing.T) {
	svc := newTestService(t)
	mustOpen(t, svc, "chan-1", "user-1")

	_, err := svc.Close(context.Background(), "chan-1", "user-2", false)
	assert.ErrorIs(t, err, ErrNotPermitted)
}

func TestCloseTwice(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustOpen(t, svc, "chan-1", "user-1")

	_, err := svc.Close(ctx, "chan-1", "user-1", false)
	require.NoError(t, err)

	_, err = svc.Close(ctx, "chan-1", "user-1", false)
	assert.ErrorIs(t, err, ErrAlreadyClosed)
}

func TestCloseMissing(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Close(context.Background(), "chan-9", "user-1", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeletionSweep(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustOpen(t, svc, "chan-1", "user-1")

	_, err := svc.Close(ctx, "chan-1", "user-1", false)
	require.NoError(t, err)

	// Before the delay elapses nothing is due.
	due, err := svc.DeletionsDue(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = svc.DeletionsDue(ctx, time.Now().Add(testDeletionDelay+time.Second))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "chan-1", due[0].ID)

	require.NoError(t, svc.MarkDeleted(ctx, "chan-1"))

	due, err = svc.DeletionsDue(ctx, time.Now().Add(testDeletionDelay+time.Second))
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestOpenTicketsAndCount(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustOpen(t, svc, "chan-1", "user-1")
	mustOpen(t, svc, "chan-2", "user-2")

	open, err := svc.OpenTickets(ctx)
	require.NoError(t, err)
	assert.Len(t, open, 2)

	n, err := svc.OpenCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = svc.Close(ctx, "chan-1", "user-1", false)
	require.NoError(t, err)

	n, err = svc.OpenCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// The requester can open a new ticket once the old one is closed.
	mustOpen(t, svc, "chan-3", "user-1")
}
