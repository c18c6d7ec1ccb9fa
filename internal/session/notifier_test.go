package session

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	to, subject, body string
	err               error
}

func (r *recordingSender) Send(_ context.Context, to, subject, body string) error {
	r.to, r.subject, r.body = to, subject, body
	return r.err
}

func TestNoticeBoard_DrainAndCap(t *testing.T) {
	board := NewNoticeBoard(2)
	ctx := context.Background()

	assert.Empty(t, board.Drain())

	for _, msg := range []string{"a", "b", "c"} {
		require.NoError(t, board.Notify(ctx, Notice{Message: msg}))
	}

	got := board.Drain()
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Message)
	assert.Equal(t, "c", got[1].Message)
	assert.Empty(t, board.Drain())
}

func TestNoticeBoard_DrainFor(t *testing.T) {
	board := NewNoticeBoard(0)
	ctx := context.Background()

	require.NoError(t, board.Notify(ctx, Notice{Message: "admin", UserID: "1"}))
	require.NoError(t, board.Notify(ctx, Notice{Message: "john", UserID: "2"}))
	require.NoError(t, board.Notify(ctx, Notice{Message: "admin again", UserID: "1"}))

	assert.Empty(t, board.DrainFor(""))
	assert.Empty(t, board.DrainFor("9"))

	got := board.DrainFor("1")
	require.Len(t, got, 2)
	assert.Equal(t, "admin", got[0].Message)
	assert.Equal(t, "admin again", got[1].Message)

	rest := board.Drain()
	require.Len(t, rest, 1)
	assert.Equal(t, "john", rest[0].Message)
}

func TestEmailNotifier(t *testing.T) {
	sender := &recordingSender{}
	n := NewEmailNotifier(sender, "")

	require.NoError(t, n.Notify(context.Background(), Notice{Message: ExpiredMessage, Email: "john@entnt.in"}))
	assert.Equal(t, "john@entnt.in", sender.to)
	assert.Equal(t, ExpiredMessage, sender.body)

	sender.to = ""
	require.NoError(t, n.Notify(context.Background(), Notice{Message: ExpiredMessage}))
	assert.Empty(t, sender.to)
}

func TestMultiNotifier_JoinsErrors(t *testing.T) {
	board := NewNoticeBoard(0)
	failing := NewEmailNotifier(&recordingSender{err: errors.New("smtp down")}, "")
	multi := MultiNotifier{board, NewLogNotifier(zerolog.Nop()), failing}

	err := multi.Notify(context.Background(), Notice{Message: "hi", Email: "a@b.c"})
	assert.ErrorContains(t, err, "smtp down")
	assert.Len(t, board.Drain(), 1)
}
