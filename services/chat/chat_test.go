package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	memstore "marketlink/database/memory"
	bookingRepo "marketlink/database/repository/booking"
	conversationRepo "marketlink/database/repository/conversation"
	"marketlink/models"
	"marketlink/services/live"
	"marketlink/services/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	ref   string
	err   error
	calls int
}

func (f *fakeUploader) Upload(_ context.Context, _ storage.Asset) (string, error) {
	f.calls++
	return f.ref, f.err
}

type fixture struct {
	store    *memstore.Store
	repo     *conversationRepo.StoreConversationRepo
	bookings *bookingRepo.StoreBookingRepo
	uploader *fakeUploader
	svc      *DefaultChatService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	f := &fixture{
		store:    store,
		repo:     conversationRepo.NewStoreConversationRepo(store, "messages"),
		bookings: bookingRepo.NewStoreBookingRepo(store, "bookings"),
		uploader: &fakeUploader{ref: "https://cdn.example/att/1.png"},
	}
	f.svc = NewDefaultChatService(f.repo, f.uploader, f.bookings, nil)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return f
}

func next(t *testing.T, sub *live.Subscription[[]models.Message]) []models.Message {
	t.Helper()
	select {
	case u, ok := <-sub.Updates():
		require.True(t, ok, "subscription closed")
		require.NoError(t, u.Err)
		return u.Value
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for messages")
		return nil
	}
}

func ids(msgs []models.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func TestPairConversationIDIsOrderIndependent(t *testing.T) {
	assert.Equal(t, PairConversationID("alice", "bob"), PairConversationID("bob", "alice"))
	assert.Equal(t, "pair_5_alice_bob", PairConversationID("bob", "alice"))
	assert.Equal(t, "booking_b1", BookingConversationID("b1"))
}

func TestParticipants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.bookings.Create(ctx, &models.Booking{ID: "b1", SeekerID: "s1", ProviderID: "p1", Version: 1}))

	parties, err := f.svc.Participants(ctx, BookingConversationID("b1"))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s1", "p1"}, parties)

	parties, err = f.svc.Participants(ctx, PairConversationID("u_2", "u_1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"u_1", "u_2"}, parties)

	_, err = f.svc.Participants(ctx, BookingConversationID("missing"))
	assert.ErrorIs(t, err, ErrInvalidConversation)
	_, err = f.svc.Participants(ctx, "general")
	assert.ErrorIs(t, err, ErrInvalidConversation)

	ok, err := f.svc.IsParticipant(ctx, PairConversationID("u_2", "u_1"), "u_2")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.svc.IsParticipant(ctx, PairConversationID("u_2", "u_1"), "u")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPairMembershipWithSeparatorInIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	conv := PairConversationID("a_b", "c")
	parties, err := f.svc.Participants(ctx, conv)
	require.NoError(t, err)
	assert.Equal(t, []string{"a_b", "c"}, parties)

	for _, party := range []string{"a_b", "c"} {
		ok, err := f.svc.IsParticipant(ctx, conv, party)
		require.NoError(t, err)
		assert.True(t, ok, party)
	}
	for _, outsider := range []string{"a", "b_c", "b", "a_b_c", ""} {
		ok, err := f.svc.IsParticipant(ctx, conv, outsider)
		require.NoError(t, err)
		assert.False(t, ok, outsider)
	}

	_, err = f.svc.Send(ctx, conv, "a", "hi")
	assert.ErrorIs(t, err, ErrNotParticipant)
	_, err = f.svc.Send(ctx, conv, "a_b", "hi")
	assert.NoError(t, err)

	// Ids without a well-formed length prefix do not resolve.
	_, err = f.svc.Participants(ctx, "pair_a_b_c")
	assert.ErrorIs(t, err, ErrInvalidConversation)
	_, err = f.svc.Participants(ctx, "pair_9_a_b")
	assert.ErrorIs(t, err, ErrInvalidConversation)
	_, err = f.svc.Participants(ctx, "pair_01_a_b")
	assert.ErrorIs(t, err, ErrInvalidConversation)
}

func TestSendValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := PairConversationID("s1", "p1")

	_, err := f.svc.Send(ctx, conv, "s1", "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = f.svc.Send(ctx, conv, "intruder", "hi")
	assert.ErrorIs(t, err, ErrNotParticipant)

	msg, err := f.svc.Send(ctx, conv, "s1", "hi")
	require.NoError(t, err)
	assert.Equal(t, models.KindText, msg.Kind)
	assert.NotEmpty(t, msg.ID)

	msgs, err := f.svc.List(ctx, conv, Window{})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Body)
}

func TestConcurrentSendsNeverConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := PairConversationID("s1", "p1")

	errs := make(chan error, 20)
	for i := 0; i < 10; i++ {
		go func() { _, err := f.svc.Send(ctx, conv, "s1", "from seeker"); errs <- err }()
		go func() { _, err := f.svc.Send(ctx, conv, "p1", "from provider"); errs <- err }()
	}
	for i := 0; i < 20; i++ {
		require.NoError(t, <-errs)
	}
	msgs, err := f.svc.List(ctx, conv, Window{})
	require.NoError(t, err)
	assert.Len(t, msgs, 20)
}

func TestSendAttachment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := PairConversationID("s1", "p1")
	asset := storage.Asset{Name: "photo.png", ContentType: "image/png", Content: strings.NewReader("png")}

	msg, err := f.svc.SendAttachment(ctx, conv, "p1", asset)
	require.NoError(t, err)
	assert.Equal(t, models.KindAttachment, msg.Kind)
	assert.Equal(t, f.uploader.ref, msg.AttachmentRef)
	assert.Empty(t, msg.Body)

	t.Run("failed upload writes nothing", func(t *testing.T) {
		f.uploader.err = errors.New("storage unavailable")
		_, err := f.svc.SendAttachment(ctx, conv, "p1", asset)
		var upErr *UploadError
		require.ErrorAs(t, err, &upErr)
		assert.Equal(t, "photo.png", upErr.Name)

		msgs, err := f.svc.List(ctx, conv, Window{})
		require.NoError(t, err)
		assert.Len(t, msgs, 1)
	})

	t.Run("non participant never uploads", func(t *testing.T) {
		calls := f.uploader.calls
		_, err := f.svc.SendAttachment(ctx, conv, "intruder", asset)
		assert.ErrorIs(t, err, ErrNotParticipant)
		assert.Equal(t, calls, f.uploader.calls)
	})
}

func TestWatchRendersTiesByID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := PairConversationID("s1", "p1")
	t1 := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	for _, m := range []models.Message{
		{ID: "b", ConversationID: conv, SenderID: "p1", Kind: models.KindText, Body: "second", SentAt: t2},
		{ID: "z", ConversationID: conv, SenderID: "s1", Kind: models.KindText, Body: "first", SentAt: t1},
		{ID: "a", ConversationID: conv, SenderID: "s1", Kind: models.KindText, Body: "tie", SentAt: t2},
	} {
		require.NoError(t, f.repo.Append(ctx, &m))
	}

	sub, err := f.svc.Watch(ctx, conv, Window{})
	require.NoError(t, err)
	defer sub.Close()
	assert.Equal(t, []string{"z", "a", "b"}, ids(next(t, sub)))

	for i := 0; i < 3; i++ {
		msgs, err := f.svc.List(ctx, conv, Window{})
		require.NoError(t, err)
		assert.Equal(t, []string{"z", "a", "b"}, ids(msgs))
	}
}

func TestWatchDeliversFullListOnChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := PairConversationID("s1", "p1")

	sub, err := f.svc.Watch(ctx, conv, Window{})
	require.NoError(t, err)
	defer sub.Close()
	assert.Empty(t, next(t, sub))

	_, err = f.svc.Send(ctx, conv, "s1", "hello")
	require.NoError(t, err)
	assert.Len(t, next(t, sub), 1)

	_, err = f.svc.Send(ctx, conv, "p1", "hi there")
	require.NoError(t, err)
	msgs := next(t, sub)
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello", msgs[0].Body)
}

func TestWatchWindowKeepsNewest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := PairConversationID("s1", "p1")
	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"m1", "m2", "m3"} {
		m := models.Message{ID: id, ConversationID: conv, SenderID: "s1", Kind: models.KindText, Body: id, SentAt: base.Add(time.Duration(i) * time.Second)}
		require.NoError(t, f.repo.Append(ctx, &m))
	}

	sub, err := f.svc.Watch(ctx, conv, Window{Limit: 2})
	require.NoError(t, err)
	defer sub.Close()
	assert.Equal(t, []string{"m2", "m3"}, ids(next(t, sub)))
}

func TestPostNotice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conv := BookingConversationID("b1")

	require.NoError(t, f.svc.PostNotice(ctx, conv, "Math Tutoring was marked completed by the provider."))
	msgs, err := f.svc.List(ctx, conv, Window{})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, models.SystemSender, msgs[0].SenderID)
	assert.Equal(t, models.KindNotice, msgs[0].Kind)
}
