package calsync

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weekcal/internal/api"
	"weekcal/internal/apperr"
	"weekcal/internal/config"
	"weekcal/internal/model"
	"weekcal/internal/session"
)

type fakeRemote struct {
	mu        sync.Mutex
	blocks    []model.Block
	created   []model.TaskInput
	deleted   []int64
	schedules int
	logins    int
	loginErr  error

	scheduleErr error
	createErr   error
	deleteErr   error

	// scheduleHook runs inside Schedule before it answers.
	scheduleHook func(call int)
}

func (f *fakeRemote) Register(context.Context, string, string, string) error { return nil }

func (f *fakeRemote) Login(context.Context, string, string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	if f.loginErr != nil {
		return "", f.loginErr
	}
	return "tok", nil
}

func (f *fakeRemote) Schedule(_ context.Context, token string) ([]model.Block, error) {
	f.mu.Lock()
	f.schedules++
	call := f.schedules
	hook := f.scheduleHook
	blocks := append([]model.Block(nil), f.blocks...)
	err := f.scheduleErr
	f.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	if token != "tok" {
		return nil, &api.StatusError{Method: "GET", Path: "/schedule/", Status: http.StatusUnauthorized}
	}
	return blocks, err
}

func (f *fakeRemote) CreateTask(_ context.Context, _ string, in model.TaskInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, in)
	id := int64(100 + len(f.blocks))
	f.blocks = append(f.blocks, model.Block{ID: id, TaskID: id, Start: deref(in.Start), End: deref(in.End), Title: in.Name})
	return nil
}

func (f *fakeRemote) DeleteBlock(_ context.Context, _ string, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i, b := range f.blocks {
		if b.ID == id {
			f.blocks = append(f.blocks[:i], f.blocks[i+1:]...)
			f.deleted = append(f.deleted, id)
			return nil
		}
	}
	return &api.StatusError{Method: "DELETE", Path: "/tasks/block/", Status: http.StatusNotFound}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func newController(t *testing.T, remote *fakeRemote) *Controller {
	t.Helper()
	sess := session.New("", config.CredentialsConfig{Username: "ana", Email: "ana@example.com", Password: "pw"})
	return New(remote, sess, time.UTC)
}

func seedBlocks() []model.Block {
	return []model.Block{
		{ID: 1, TaskID: 10, Start: "2026-10-19T09:00:00Z", End: "2026-10-19T10:00:00Z", Title: "Review"},
		{ID: 2, TaskID: 11, Start: "2026-10-20T14:00:00Z", End: "2026-10-20T15:30:00Z", Title: "Gym"},
	}
}

func TestResync_LoadsAndIsIdempotent(t *testing.T) {
	remote := &fakeRemote{blocks: seedBlocks()}
	c := newController(t, remote)
	assert.Equal(t, Uninitialized, c.State())

	require.NoError(t, c.Resync(context.Background()))
	first := c.Events()
	require.Len(t, first, 2)
	assert.Equal(t, Ready, c.State())

	require.NoError(t, c.Resync(context.Background()))
	assert.Equal(t, first, c.Events())
	assert.Equal(t, 1, remote.logins, "token is reused")
}

func TestResync_FailureKeepsPreviousSet(t *testing.T) {
	remote := &fakeRemote{blocks: seedBlocks()}
	c := newController(t, remote)
	require.NoError(t, c.Resync(context.Background()))

	remote.scheduleErr = errors.New("connection reset")
	err := c.Resync(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNetwork)
	assert.Equal(t, Error, c.State())
	assert.Len(t, c.Events(), 2)

	n, ok := c.Notice()
	require.True(t, ok)
	assert.Equal(t, apperr.KindNetwork, n.Kind)
	c.DismissNotice()
	_, ok = c.Notice()
	assert.False(t, ok)
}

func TestResync_RecoveryClearsFailureNotice(t *testing.T) {
	remote := &fakeRemote{blocks: seedBlocks()}
	c := newController(t, remote)

	remote.scheduleErr = &api.StatusError{Method: "GET", Path: "/schedule/", Status: http.StatusServiceUnavailable}
	require.Error(t, c.Resync(context.Background()))
	_, ok := c.Notice()
	require.True(t, ok)

	remote.scheduleErr = nil
	require.NoError(t, c.Resync(context.Background()))
	assert.Equal(t, Ready, c.State())
	assert.Len(t, c.Events(), 2)
	_, ok = c.Notice()
	assert.False(t, ok)
}

func TestResync_KeepsMutationNotice(t *testing.T) {
	remote := &fakeRemote{blocks: seedBlocks()}
	c := newController(t, remote)
	require.NoError(t, c.Resync(context.Background()))

	require.Error(t, c.Remove(context.Background(), 42))
	require.NoError(t, c.Resync(context.Background()))
	n, ok := c.Notice()
	require.True(t, ok)
	assert.Equal(t, "could not delete the event", n.Message)
}

func TestResync_UnreachableLoginIsNetworkFailure(t *testing.T) {
	remote := &fakeRemote{loginErr: errors.New("POST /token: dial tcp 127.0.0.1:8000: connect: connection refused")}
	c := newController(t, remote)

	err := c.Resync(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperr.KindNetwork, apperr.KindOf(err))
	assert.Equal(t, Error, c.State())

	n, ok := c.Notice()
	require.True(t, ok)
	assert.Equal(t, apperr.KindNetwork, n.Kind)
	assert.Equal(t, 0, remote.schedules)
}

func TestCreate_StandupScenario(t *testing.T) {
	remote := &fakeRemote{}
	c := newController(t, remote)

	monday := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	d := model.NewDraft(monday)
	d.Title = "Standup"

	require.NoError(t, c.Create(context.Background(), d))

	require.Len(t, remote.created, 1)
	in := remote.created[0]
	assert.Equal(t, int64(3600), in.EstimatedTime)
	require.NotNil(t, in.Start)
	require.NotNil(t, in.End)
	start, err := time.Parse(time.RFC3339, *in.Start)
	require.NoError(t, err)
	end, err := time.Parse(time.RFC3339, *in.End)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, end.Sub(start))

	// The create is followed by a full refetch.
	assert.Equal(t, 1, remote.schedules)
	events := c.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "Standup", events[0].Title)
	assert.Equal(t, Ready, c.State())
}

func TestCreate_BlankTitleMakesNoCall(t *testing.T) {
	remote := &fakeRemote{}
	c := newController(t, remote)

	d := model.NewDraft(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC))
	d.Title = "   "
	err := c.Create(context.Background(), d)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Empty(t, remote.created)
	assert.Zero(t, remote.logins)
	assert.Zero(t, remote.schedules)
}

func TestCreate_FailureLeavesStateUntouched(t *testing.T) {
	remote := &fakeRemote{blocks: seedBlocks()}
	c := newController(t, remote)
	require.NoError(t, c.Resync(context.Background()))

	remote.createErr = &api.StatusError{Method: "POST", Path: "/tasks/", Status: http.StatusInternalServerError}
	d := model.NewDraft(time.Date(2026, 10, 21, 9, 0, 0, 0, time.UTC))
	d.Title = "Plan"
	err := c.Create(context.Background(), d)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNetwork)

	assert.Len(t, c.Events(), 2)
	assert.Equal(t, Ready, c.State())
	assert.Equal(t, 1, remote.schedules)
	_, ok := c.Notice()
	assert.True(t, ok)
}

func TestCreate_RecurringExplicit(t *testing.T) {
	remote := &fakeRemote{}
	c := newController(t, remote)

	d := model.NewDraft(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC))
	d.Title = "Run"
	d.Repeat = "FREQ=DAILY;COUNT=3"
	require.NoError(t, c.Create(context.Background(), d))

	require.Len(t, remote.created, 3)
	assert.Equal(t, "2026-10-21T09:00:00Z", *remote.created[2].Start)
	assert.Len(t, c.Events(), 3)
}

func TestCreate_RecurringAutoSchedule(t *testing.T) {
	remote := &fakeRemote{}
	c := newController(t, remote)

	d := model.NewDraft(time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC))
	d.Title = "Read"
	d.AutoSchedule = true
	d.Repeat = "FREQ=WEEKLY;COUNT=4"
	require.NoError(t, c.Create(context.Background(), d))

	require.Len(t, remote.created, 1)
	assert.Equal(t, 4, remote.created[0].Instances)
	assert.Nil(t, remote.created[0].Start)
	assert.Nil(t, remote.created[0].End)
}

func TestRemove_Missing42(t *testing.T) {
	remote := &fakeRemote{blocks: seedBlocks()}
	c := newController(t, remote)
	require.NoError(t, c.Resync(context.Background()))
	before := c.Events()

	err := c.Remove(context.Background(), 42)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNetwork)
	assert.Equal(t, before, c.Events())

	n, ok := c.Notice()
	require.True(t, ok)
	assert.Equal(t, apperr.KindNetwork, n.Kind)
	assert.Equal(t, 1, remote.schedules, "no refetch after a failed delete")
}

func TestRemove_ResyncsAfterAck(t *testing.T) {
	remote := &fakeRemote{blocks: seedBlocks()}
	c := newController(t, remote)
	require.NoError(t, c.Resync(context.Background()))

	require.NoError(t, c.Remove(context.Background(), 1))
	assert.Equal(t, []int64{1}, remote.deleted)
	events := c.Events()
	require.Len(t, events, 1)
	assert.Equal(t, int64(2), events[0].ID())
}

func TestRemove_BusyRefused(t *testing.T) {
	remote := &fakeRemote{}
	c := newController(t, remote)
	err := c.Remove(context.Background(), -1)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Zero(t, remote.logins)
}

func TestResync_StaleResponseDiscarded(t *testing.T) {
	remote := &fakeRemote{blocks: seedBlocks()}
	c := newController(t, remote)
	require.NoError(t, c.Resync(context.Background()))

	release := make(chan struct{})
	entered := make(chan struct{})
	remote.scheduleHook = func(call int) {
		// Call 2 is the slow one; it answers after call 3 has applied.
		if call == 2 {
			close(entered)
			<-release
		}
	}
	remote.blocks = seedBlocks()[:1]

	done := make(chan error, 1)
	go func() { done <- c.Resync(context.Background()) }()
	<-entered

	remote.mu.Lock()
	remote.blocks = nil
	remote.mu.Unlock()
	require.NoError(t, c.Resync(context.Background()))
	assert.Empty(t, c.Events())

	close(release)
	require.NoError(t, <-done)
	assert.Empty(t, c.Events(), "late response must not overwrite the newer one")
	assert.Equal(t, Ready, c.State())
}

func TestResync_RejectedTokenLogsInAgain(t *testing.T) {
	remote := &fakeRemote{blocks: seedBlocks()}
	sess := session.New("", config.CredentialsConfig{Username: "ana", Password: "pw"})
	require.NoError(t, sess.SetToken("expired"))
	c := New(remote, sess, time.UTC)

	err := c.Resync(context.Background())
	assert.ErrorIs(t, err, apperr.ErrAuth)
	assert.False(t, sess.Authenticated())

	require.NoError(t, c.Resync(context.Background()))
	assert.Len(t, c.Events(), 2)
	assert.Equal(t, 1, remote.logins)
}
