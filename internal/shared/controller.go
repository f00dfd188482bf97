// Package shared drives a calendar opened through a share token.
//
// The view is read-only apart from twin tasks. A token the service refuses
// puts the controller in the terminal Invalid state: it never shows owned
// data in its place and never passes an empty calendar off as "no events".
package shared

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"weekcal/internal/api"
	"weekcal/internal/apperr"
	"weekcal/internal/calsync"
	appLog "weekcal/internal/log"
	"weekcal/internal/mapper"
	"weekcal/internal/model"
	"weekcal/internal/session"
	"weekcal/internal/validation"
)

// DefaultRange is how far either side of now a fetch without bounds looks.
const DefaultRange = 365 * 24 * time.Hour

// State is the shared view's load state.
type State int

const (
	Uninitialized State = iota
	Loading
	Ready
	Error
	// Invalid is terminal: the token was rejected.
	Invalid
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
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Remote is the part of the service contract a shared view uses.
type Remote interface {
	session.Authenticator
	SharedView(ctx context.Context, shareToken string, start, end time.Time) (model.SharedSchedule, error)
	TwinTask(ctx context.Context, token, shareToken string, in model.TaskInput) error
}

// Controller is safe for concurrent use.
type Controller struct {
	remote   Remote
	token    string
	sess     *session.Session
	loc      *time.Location
	validate *validation.Validator
	now      func() time.Time
	bounds   func(now time.Time) (time.Time, time.Time)

	mu     sync.RWMutex
	state  State
	owner  string
	events []model.Event
	err    error
	issued uint64
}

// New creates a controller for shareToken. sess may be nil; twin tasks then
// fail with an auth error.
func New(remote Remote, shareToken string, sess *session.Session, loc *time.Location) *Controller {
	if loc == nil {
		loc = time.Local
	}
	return &Controller{
		remote:   remote,
		token:    shareToken,
		sess:     sess,
		loc:      loc,
		validate: validation.New(),
		now:      time.Now,
		bounds: func(now time.Time) (time.Time, time.Time) {
			return now.Add(-DefaultRange), now.Add(DefaultRange)
		},
	}
}

// WithDefaultRange replaces the range used by Fetch calls without bounds.
func (c *Controller) WithDefaultRange(fn func(now time.Time) (time.Time, time.Time)) *Controller {
	if fn != nil {
		c.bounds = fn
	}
	return c
}

// Token returns the share token the controller was opened with.
func (c *Controller) Token() string { return c.token }

// State returns the controller's current state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Owner returns the display name of the calendar owner.
func (c *Controller) Owner() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.owner
}

// Events returns a copy of the busy slots.
func (c *Controller) Events() []model.Event {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.Event, len(c.events))
	copy(out, c.events)
	return out
}

// Err returns the failure behind the Error or Invalid state.
func (c *Controller) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Fetch loads the owner's busy slots in [start, end] and returns the
// owner's display name. Zero bounds fall back to the default range. Once the
// controller is Invalid every Fetch fails without a request.
func (c *Controller) Fetch(ctx context.Context, start, end time.Time) (string, error) {
	defStart, defEnd := c.bounds(c.now())
	if start.IsZero() {
		start = defStart
	}
	if end.IsZero() {
		end = defEnd
	}

	c.mu.Lock()
	if c.state == Invalid {
		err := c.err
		c.mu.Unlock()
		return "", err
	}
	c.issued++
	seq := c.issued
	c.state = Loading
	c.mu.Unlock()

	sched, err := c.remote.SharedView(ctx, c.token, start, end)
	var events []model.Event
	if err == nil {
		events, err = mapper.SharedSlotsToEvents(sched.Schedule, c.loc)
		if err != nil {
			err = apperr.Network("shared schedule contained an unreadable slot", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Invalid {
		return "", c.err
	}
	if seq != c.issued {
		appLog.Debug("shared view response discarded", "seq", seq, "latest", c.issued)
		return c.owner, nil
	}

	switch {
	case err == nil:
		c.owner = sched.Username
		c.events = events
		c.err = nil
		c.state = Ready
		return c.owner, nil
	case api.ShareTokenRejected(err):
		c.err = apperr.InvalidShareToken("this share link is invalid or has expired", err)
		c.events = nil
		c.owner = ""
		c.state = Invalid
		appLog.Warn("share token rejected", "status", api.StatusCode(err))
		return "", c.err
	default:
		c.err = api.Classify("could not load the shared calendar", err)
		c.state = Error
		appLog.Error("shared view fetch failed", err)
		return "", c.err
	}
}

// CreateTwin creates a task on both the caller's and the owner's calendar,
// then refreshes the view over the default range.
func (c *Controller) CreateTwin(ctx context.Context, d model.Draft) error {
	if c.State() == Invalid {
		return c.Err()
	}
	if c.sess == nil {
		return apperr.Auth("log in to add a shared task", nil)
	}
	if err := c.validate.Validate(d); err != nil {
		return err
	}
	inputs, err := calsync.Plan(d)
	if err != nil {
		return err
	}
	if err := c.sess.Ensure(ctx, c.remote); err != nil {
		return err
	}

	for _, in := range inputs {
		in.WithFriend = true
		if err := c.remote.TwinTask(ctx, c.sess.Token(), c.token, in); err != nil {
			if api.ShareTokenRejected(err) && api.StatusCode(err) != http.StatusUnauthorized {
				return apperr.InvalidShareToken("this share link is invalid or has expired", err)
			}
			err = api.Classify("could not create the shared task", err)
			appLog.Error("twin task failed", err, "name", in.Name)
			return err
		}
	}
	appLog.Info("twin task created", "name", strings.TrimSpace(d.Title), "requests", len(inputs))
	_, err = c.Fetch(ctx, time.Time{}, time.Time{})
	return err
}

// Remove is refused: shared views are read-only.
func (c *Controller) Remove(context.Context, int64) error {
	return apperr.ReadOnly("shared calendars are read-only")
}

// Edit is refused: shared views are read-only.
func (c *Controller) Edit(context.Context, int64, model.Draft) error {
	return apperr.ReadOnly("shared calendars are read-only")
}

// ParseSharePath extracts the token from a ".../calendar/view/{token}"
// path. The token must be a single non-empty segment.
func ParseSharePath(path string) (string, bool) {
	const marker = "calendar/view/"
	i := strings.LastIndex(path, marker)
	if i < 0 {
		return "", false
	}
	if i > 0 && path[i-1] != '/' {
		return "", false
	}
	token := strings.TrimSuffix(path[i+len(marker):], "/")
	if token == "" || strings.Contains(token, "/") {
		return "", false
	}
	return token, true
}
