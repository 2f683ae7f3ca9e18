package service

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/messagely/messagely/internal/metrics"
	"github.com/messagely/messagely/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	users    *UserService
	messages *MessageService
	store    *memStore
	metrics  *metrics.InMemoryRecorder
}

func newFixture(t *testing.T, usernames ...string) *fixture {
	t.Helper()
	store := newMemStore()
	rec := metrics.NewInMemory()
	f := &fixture{
		users:    NewUserService(store, newTestHasher(t), rec, nil),
		messages: NewMessageService(store, rec, nil),
		store:    store,
		metrics:  rec,
	}
	for _, name := range usernames {
		_, err := f.users.Register(context.Background(), RegisterInput{
			Username:  name,
			Password:  "pw-" + name,
			FirstName: name + "-first",
			Phone:     name + "-phone",
		})
		require.NoError(t, err)
	}
	return f
}

func TestCreate_StartsUnread(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()

	msg, err := f.messages.Create(ctx, "alice", "bob", "hi")
	require.NoError(t, err)
	assert.NotZero(t, msg.ID)
	assert.False(t, msg.IsRead())
	assert.False(t, msg.SentAt.IsZero())

	second, err := f.messages.Create(ctx, "alice", "bob", "again")
	require.NoError(t, err)
	assert.NotEqual(t, msg.ID, second.ID)
	assert.Equal(t, uint64(2), f.metrics.Snapshot().MessagesSent)
}

func TestCreate_EmptyBodyAllowed(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	msg, err := f.messages.Create(context.Background(), "alice", "bob", "")
	require.NoError(t, err)
	assert.Equal(t, "", msg.Body)
}

func TestCreate_MissingParty(t *testing.T) {
	f := newFixture(t, "alice")
	ctx := context.Background()

	_, err := f.messages.Create(ctx, "alice", "ghost", "hi")
	require.ErrorIs(t, err, ErrUserNotFound)
	var missing *repository.MissingUserError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "recipient", missing.Role)
	assert.Equal(t, "ghost", missing.Username)

	_, err = f.messages.Create(ctx, "ghost", "alice", "hi")
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "sender", missing.Role)

	_, err = f.messages.Create(ctx, "", "alice", "hi")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGet_ExpandsPartiesFreshly(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()

	msg, err := f.messages.Create(ctx, "alice", "bob", "hi")
	require.NoError(t, err)

	detail, err := f.messages.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", detail.FromUser.Username)
	assert.Equal(t, "bob-phone", detail.ToUser.Phone)
	assert.Nil(t, detail.ReadAt)

	f.store.renameUser("alice", "Alicia")
	detail, err = f.messages.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alicia", detail.FromUser.FirstName)

	_, err = f.messages.Get(ctx, 9999)
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestMarkRead_OnceOnly(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()

	msg, err := f.messages.Create(ctx, "alice", "bob", "hi")
	require.NoError(t, err)

	receipt, err := f.messages.MarkRead(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, receipt.ID)
	assert.False(t, receipt.ReadAt.Before(msg.SentAt))

	_, err = f.messages.MarkRead(ctx, msg.ID)
	assert.ErrorIs(t, err, ErrAlreadyRead)

	detail, err := f.messages.Get(ctx, msg.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.ReadAt)
	assert.True(t, detail.ReadAt.Equal(receipt.ReadAt), "read_at must keep its first value")

	_, err = f.messages.MarkRead(ctx, 9999)
	assert.ErrorIs(t, err, ErrMessageNotFound)

	assert.Equal(t, uint64(1), f.metrics.Snapshot().MessagesRead)
}

func TestListings_OrderAndCounterparty(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	ctx := context.Background()

	_, err := f.messages.Create(ctx, "alice", "bob", "first")
	require.NoError(t, err)
	_, err = f.messages.Create(ctx, "carol", "alice", "inbound")
	require.NoError(t, err)
	_, err = f.messages.Create(ctx, "alice", "carol", "second")
	require.NoError(t, err)

	out, err := Collect(f.messages.OutgoingFor(ctx, "alice"))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "first", out[0].Body)
	assert.Equal(t, "bob", out[0].ToUser.Username)
	assert.Equal(t, "carol", out[1].ToUser.Username)
	assert.False(t, out[1].SentAt.Before(out[0].SentAt))

	in, err := Collect(f.messages.IncomingFor(ctx, "alice"))
	require.NoError(t, err)
	require.Len(t, in, 1)
	assert.Equal(t, "carol", in[0].FromUser.Username)

	none, err := Collect(f.messages.IncomingFor(ctx, "nobody"))
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestCollect_StopsAtError(t *testing.T) {
	boom := errors.New("boom")
	var seq iter.Seq2[int, error] = func(yield func(int, error) bool) {
		if !yield(1, nil) {
			return
		}
		yield(0, boom)
	}
	_, err := Collect(seq)
	assert.ErrorIs(t, err, boom)
}

func TestGuarded_ViewAs(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	ctx := context.Background()

	msg, err := f.messages.Send(ctx, "alice", "bob", "hi")
	require.NoError(t, err)
	assert.Equal(t, "alice", msg.FromUsername)

	for _, caller := range []string{"alice", "bob"} {
		detail, err := f.messages.ViewAs(ctx, caller, msg.ID)
		require.NoError(t, err, caller)
		assert.Equal(t, msg.ID, detail.ID)
	}

	_, err = f.messages.ViewAs(ctx, "carol", msg.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.messages.ViewAs(ctx, "alice", 9999)
	assert.ErrorIs(t, err, ErrForbidden, "missing messages are masked")

	_, err = f.messages.ViewAs(ctx, "", msg.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestGuarded_MarkReadAsRecipientOnly(t *testing.T) {
	f := newFixture(t, "alice", "bob", "carol")
	ctx := context.Background()

	msg, err := f.messages.Send(ctx, "alice", "bob", "hi")
	require.NoError(t, err)

	_, err = f.messages.MarkReadAs(ctx, "alice", msg.ID)
	assert.ErrorIs(t, err, ErrForbidden, "sender may not mark read")

	_, err = f.messages.MarkReadAs(ctx, "carol", msg.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	detail, err := f.messages.Get(ctx, msg.ID)
	require.NoError(t, err)
	assert.Nil(t, detail.ReadAt, "denied attempts must not mutate")

	receipt, err := f.messages.MarkReadAs(ctx, "bob", msg.ID)
	require.NoError(t, err)
	assert.Equal(t, msg.ID, receipt.ID)

	_, err = f.messages.MarkReadAs(ctx, "bob", msg.ID)
	assert.ErrorIs(t, err, ErrAlreadyRead)

	_, err = f.messages.MarkReadAs(ctx, "bob", 9999)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestGuarded_Send(t *testing.T) {
	f := newFixture(t, "alice")
	ctx := context.Background()

	_, err := f.messages.Send(ctx, "", "alice", "hi")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.messages.Send(ctx, "alice", "ghost", "hi")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGuarded_Listings(t *testing.T) {
	f := newFixture(t, "alice", "bob")
	ctx := context.Background()

	_, err := f.messages.Send(ctx, "alice", "bob", "hi")
	require.NoError(t, err)

	out, err := f.messages.OutgoingAs(ctx, "alice", "alice")
	require.NoError(t, err)
	assert.Len(t, out, 1)

	in, err := f.messages.IncomingAs(ctx, "bob", "bob")
	require.NoError(t, err)
	assert.Len(t, in, 1)

	_, err = f.messages.OutgoingAs(ctx, "bob", "alice")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.messages.IncomingAs(ctx, "alice", "bob")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.messages.IncomingAs(ctx, "alice", "ghost")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestConversationRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.Register(ctx, RegisterInput{Username: "alice", Password: "pw1", FirstName: "Alice"})
	require.NoError(t, err)
	_, err = f.users.Register(ctx, RegisterInput{Username: "bob", Password: "pw2", FirstName: "Bob"})
	require.NoError(t, err)

	_, err = f.users.Login(ctx, "alice", "pw1")
	require.NoError(t, err)

	msg, err := f.messages.Send(ctx, "alice", "bob", "hello bob")
	require.NoError(t, err)

	inbox, err := f.messages.IncomingAs(ctx, "bob", "bob")
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "Alice", inbox[0].FromUser.FirstName)
	assert.Nil(t, inbox[0].ReadAt)

	_, err = f.messages.MarkReadAs(ctx, "bob", msg.ID)
	require.NoError(t, err)

	sent, err := f.messages.OutgoingAs(ctx, "alice", "alice")
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.NotNil(t, sent[0].ReadAt, "sender sees the read acknowledgement")
	assert.Equal(t, "Bob", sent[0].ToUser.FirstName)
}
