package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinyyama/support-chat/internal/service"
)

func TestNotificationService(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.notes.Notify(ctx, "u1", "Ticket updated", "Status changed", "", nil)
	f.notes.Notify(ctx, "u1", "Second", "", "", nil)
	f.notes.Notify(ctx, "", "ignored", "", "", nil)
	require.Len(t, f.pub.sent["u1"], 2)

	list, err := f.notes.List(ctx, "u1", false, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)

	cnt, err := f.notes.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, cnt)

	id := list[0].ID
	require.NoError(t, f.notes.MarkRead(ctx, "u1", id))
	require.NoError(t, f.notes.MarkRead(ctx, "u1", id), "marking twice is fine")
	assert.ErrorIs(t, f.notes.MarkRead(ctx, "u2", id), service.ErrNotFound)

	n, err := f.notes.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, f.notes.Delete(ctx, "u1", id))
	assert.ErrorIs(t, f.notes.Delete(ctx, "u1", id), service.ErrNotFound)
}
