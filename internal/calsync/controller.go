// Package calsync keeps a calendar session's event set in step with the
// remote service.
//
// Every mutation is followed by a full Resync, and Resync is the only code
// path that replaces the event set. Each Resync takes a sequence number;
// when responses resolve out of order, only the most recently issued one is
// applied.
package calsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"weekcal/internal/api"
	"weekcal/internal/apperr"
	appLog "weekcal/internal/log"
	"weekcal/internal/mapper"
	"weekcal/internal/model"
	"weekcal/internal/session"
	"weekcal/internal/validation"
)

// State is the controller's load state.
type State int

const (
	Uninitialized State = iota
	Loading
	Ready
	Error
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Remote is the part of the service contract the controller uses.
// *api.Client implements it.
type Remote interface {
	session.Authenticator
	Schedule(ctx context.Context, token string) ([]model.Block, error)
	CreateTask(ctx context.Context, token string, in model.TaskInput) error
	DeleteBlock(ctx context.Context, token string, blockID int64) error
}

// Notice is a dismissible, non-fatal message for the render side.
type Notice struct {
	Kind    apperr.Kind
	Message string
	At      time.Time
}

// Controller is safe for concurrent use. Remote calls never run under mu,
// so readers are not blocked by a request in flight.
type Controller struct {
	remote   Remote
	sess     *session.Session
	loc      *time.Location
	validate *validation.Validator
	now      func() time.Time

	mu     sync.RWMutex
	state  State
	events []model.Event
	notice *Notice
	// staleNotice marks a notice raised by a failed resync; the next
	// successful resync clears it.
	staleNotice bool
	issued      uint64
}

// New creates a controller. Backend times are read in loc; nil means
// time.Local.
func New(remote Remote, sess *session.Session, loc *time.Location) *Controller {
	if loc == nil {
		loc = time.Local
	}
	return &Controller{
		remote:   remote,
		sess:     sess,
		loc:      loc,
		validate: validation.New(),
		now:      time.Now,
	}
}

// State returns the current load state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Events returns a copy of the current event set.
func (c *Controller) Events() []model.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Event, len(c.events))
	copy(out, c.events)
	return out
}

// Notice returns the pending notice, if any.
func (c *Controller) Notice() (Notice, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.notice == nil {
		return Notice{}, false
	}
	return *c.notice, true
}

// DismissNotice clears the pending notice.
func (c *Controller) DismissNotice() {
	c.mu.Lock()
	c.notice = nil
	c.staleNotice = false
	c.mu.Unlock()
}

// Resync fetches the whole schedule and replaces the event set. On failure
// the previous set is kept, the state becomes Error and a notice is set.
// A later successful Resync clears that notice; notices from failed
// mutations stay until dismissed.
func (c *Controller) Resync(ctx context.Context) error {
	c.mu.Lock()
	c.issued++
	seq := c.issued
	c.state = Loading
	c.mu.Unlock()

	events, err := c.fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.issued {
		appLog.Debug("resync response discarded", "seq", seq, "latest", c.issued)
		return nil
	}
	if err != nil {
		c.state = Error
		c.setNoticeLocked(err)
		c.staleNotice = true
		appLog.Error("resync failed", err, "seq", seq)
		return err
	}
	c.events = events
	c.state = Ready
	if c.staleNotice {
		c.notice = nil
		c.staleNotice = false
	}
	appLog.Debug("resync applied", "seq", seq, "events", len(events))
	return nil
}

func (c *Controller) fetch(ctx context.Context) ([]model.Event, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}
	blocks, err := c.remote.Schedule(ctx, token)
	if err != nil {
		return nil, c.classify("could not load your schedule", err)
	}
	events, err := mapper.BlocksToEvents(blocks, c.loc)
	if err != nil {
		return nil, apperr.Network("schedule contained an unreadable block", err)
	}
	return events, nil
}

// Create validates d, sends it and resyncs. A blank title is refused before
// any network call. If the request fails the event set is left untouched.
func (c *Controller) Create(ctx context.Context, d model.Draft) error {
	if err := c.validate.Validate(d); err != nil {
		return err
	}
	inputs, err := Plan(d)
	if err != nil {
		return err
	}
	token, err := c.token(ctx)
	if err != nil {
		c.setNotice(err)
		return err
	}

	for i, in := range inputs {
		if err := c.remote.CreateTask(ctx, token, in); err != nil {
			err = c.classify("could not create "+in.Name, err)
			c.setNotice(err)
			appLog.Error("create task failed", err, "name", in.Name, "created", i, "planned", len(inputs))
			if i > 0 {
				// Some occurrences exist server side now; show them.
				_ = c.Resync(ctx)
			}
			return err
		}
	}
	appLog.Info("task created", "name", inputs[0].Name, "requests", len(inputs), "auto", d.AutoSchedule)
	return c.Resync(ctx)
}

// Remove deletes an owned block and resyncs. Busy slots have negative IDs
// and are refused.
func (c *Controller) Remove(ctx context.Context, blockID int64) error {
	if blockID < 0 {
		return apperr.Validation("busy slots cannot be deleted")
	}
	token, err := c.token(ctx)
	if err != nil {
		c.setNotice(err)
		return err
	}
	if err := c.remote.DeleteBlock(ctx, token, blockID); err != nil {
		err = c.classify("could not delete the event", err)
		c.setNotice(err)
		appLog.Error("delete block failed", err, "block_id", blockID)
		return err
	}
	appLog.Info("block deleted", "block_id", blockID)
	return c.Resync(ctx)
}

func (c *Controller) token(ctx context.Context) (string, error) {
	if err := c.sess.Ensure(ctx, c.remote); err != nil {
		return "", err
	}
	return c.sess.Token(), nil
}

// classify converts a remote error. A rejected credential is dropped so
// the next call logs in again.
func (c *Controller) classify(msg string, err error) error {
	err = api.Classify(msg, err)
	if errors.Is(err, apperr.ErrAuth) {
		if lerr := c.sess.Logout(); lerr != nil {
			appLog.Error("session logout failed", lerr)
		}
	}
	return err
}

func (c *Controller) setNotice(err error) {
	c.mu.Lock()
	c.setNoticeLocked(err)
	c.mu.Unlock()
}

func (c *Controller) setNoticeLocked(err error) {
	n := Notice{Kind: apperr.KindOf(err), Message: err.Error(), At: c.now()}
	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Message != "" {
		n.Message = ae.Message
	}
	c.notice = &n
	c.staleNotice = false
}
