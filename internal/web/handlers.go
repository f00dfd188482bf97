package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"weekcal/internal/api"
	"weekcal/internal/apperr"
	"weekcal/internal/calsync"
	"weekcal/internal/ics"
	appLog "weekcal/internal/log"
	"weekcal/internal/model"
	"weekcal/internal/shared"
	"weekcal/internal/timeutil"
)

const maxBodyBytes = 64 << 10

// draftRequest is the JSON body of POST /api/events and the twin route.
type draftRequest struct {
	Title        string    `json:"title"`
	Start        time.Time `json:"start"`
	Hours        float64   `json:"hours"`
	Priority     int       `json:"priority"`
	AutoSchedule bool      `json:"auto_schedule"`
	Due          time.Time `json:"due"`
	WithFriend   bool      `json:"with_friend"`
	Repeat       string    `json:"repeat"`
	Instances    int       `json:"instances"`
}

// draft converts the request. Auto-scheduled drafts may omit start; they
// are then anchored at now.
func (req draftRequest) draft(loc *time.Location, now time.Time) (model.Draft, error) {
	start := req.Start
	if start.IsZero() {
		if !req.AutoSchedule {
			return model.Draft{}, apperr.ValidationWithFields("start is required", map[string]string{"start": "is required"})
		}
		start = now
	}
	d := model.NewDraft(start.In(loc))
	d.Title = req.Title
	if req.Hours != 0 {
		d.Duration = timeutil.FromHours(req.Hours)
	}
	if req.Priority != 0 {
		d.Priority = req.Priority
	}
	d.AutoSchedule = req.AutoSchedule
	d.Due = req.Due
	d.WithFriend = req.WithFriend
	d.Repeat = req.Repeat
	d.Instances = req.Instances
	return d, nil
}

func decodeDraft(w http.ResponseWriter, r *http.Request) (draftRequest, error) {
	var req draftRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, apperr.Validation("request body is not valid JSON")
	}
	return req, nil
}

// GET /api/week?date=YYYY-MM-DD
func (s *Server) handleWeek(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctl := s.deps.Sync
	if ctl.State() == calsync.Uninitialized {
		// A failed first load is reported through state and notice.
		_ = ctl.Resync(ctx)
	}
	week := s.weekOf(r)
	writeJSON(w, http.StatusOK, s.ownedWeek(week))
}

func (s *Server) ownedWeek(week [7]time.Time) weekResponse {
	ctl := s.deps.Sync
	resp := s.buildWeek(week, ctl.Events())
	resp.State = ctl.State().String()
	if n, ok := ctl.Notice(); ok {
		resp.Notice = &noticeDTO{Kind: string(n.Kind), Message: n.Message, At: n.At}
	}
	return resp
}

// POST /api/events
func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	req, err := decodeDraft(w, r)
	if err != nil {
		writeAppError(w, err)
		return
	}
	d, err := req.draft(s.loc, s.now())
	if err != nil {
		writeAppError(w, err)
		return
	}
	if err := s.deps.Sync.Create(r.Context(), d); err != nil {
		writeAppError(w, err)
		return
	}
	week := timeutil.WeekOf(d.Start.In(s.loc), s.cfg.FirstWeekday())
	writeJSON(w, http.StatusCreated, s.ownedWeek(week))
}

// DELETE /api/events/{id}
func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}
	if err := s.deps.Sync.Remove(r.Context(), id); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/resync
func (s *Server) handleResync(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Sync.Resync(r.Context()); err != nil {
		writeAppError(w, err)
		return
	}
	s.deps.Sync.DismissNotice()
	writeJSON(w, http.StatusOK, map[string]any{
		"state":  s.deps.Sync.State().String(),
		"events": len(s.deps.Sync.Events()),
	})
}

// POST /api/share/link
func (s *Server) handleShareLink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.deps.Session.Ensure(ctx, s.deps.Remote); err != nil {
		writeAppError(w, err)
		return
	}
	link, err := s.deps.Remote.ShareLink(ctx, s.deps.Session.Token())
	if err != nil {
		writeAppError(w, api.Classify("could not create a share link", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"share_url": link})
}

// GET /calendar?date=YYYY-MM-DD
func (s *Server) handleCalendarPage(w http.ResponseWriter, r *http.Request) {
	ctl := s.deps.Sync
	if ctl.State() == calsync.Uninitialized {
		_ = ctl.Resync(r.Context())
	}
	week := s.weekOf(r)
	s.render(w, http.StatusOK, "calendar.html", s.buildPage(week, s.ownedWeek(week)))
}

// GET /calendar.ics
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	ctl := s.deps.Sync
	if ctl.State() == calsync.Uninitialized {
		if err := ctl.Resync(r.Context()); err != nil {
			writeAppError(w, err)
			return
		}
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="weekcal.ics"`)
	_, _ = w.Write([]byte(ics.Export(ctl.Events(), s.now())))
}

// sharedWeek loads the shared week for the token in the URL. The returned
// controller tells the caller whether the token was rejected.
func (s *Server) sharedWeek(r *http.Request, week [7]time.Time) (*shared.Controller, weekResponse, error) {
	token := chi.URLParam(r, "token")
	c := shared.New(s.deps.Remote, token, s.deps.Session, s.loc).WithDefaultRange(s.cfg.ShareRange)
	from, to := weekBounds(week)
	owner, err := c.Fetch(r.Context(), from, to)
	resp := s.buildWeek(week, c.Events())
	resp.State = c.State().String()
	resp.Owner = owner
	return c, resp, err
}

type invalidPage struct {
	Heading string
	Message string
}

// GET /calendar/view/{token}?date=YYYY-MM-DD
func (s *Server) handleSharedPage(w http.ResponseWriter, r *http.Request) {
	week := s.weekOf(r)
	c, resp, err := s.sharedWeek(r, week)
	switch {
	case c.State() == shared.Invalid:
		s.render(w, http.StatusGone, "invalid.html", invalidPage{
			Heading: "This link is invalid or has expired",
			Message: "Ask the calendar owner for a new share link.",
		})
	case err != nil:
		s.render(w, http.StatusBadGateway, "invalid.html", invalidPage{
			Heading: "The shared calendar could not be loaded",
			Message: "Please try again in a moment.",
		})
	default:
		s.render(w, http.StatusOK, "calendar.html", s.buildPage(week, resp))
	}
}

// GET /api/share/{token}/week?date=YYYY-MM-DD
func (s *Server) handleSharedWeek(w http.ResponseWriter, r *http.Request) {
	_, resp, err := s.sharedWeek(r, s.weekOf(r))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// POST /calendar/view/{token}/twin
func (s *Server) handleTwin(w http.ResponseWriter, r *http.Request) {
	req, err := decodeDraft(w, r)
	if err != nil {
		writeAppError(w, err)
		return
	}
	d, err := req.draft(s.loc, s.now())
	if err != nil {
		writeAppError(w, err)
		return
	}
	c := shared.New(s.deps.Remote, chi.URLParam(r, "token"), s.deps.Session, s.loc).WithDefaultRange(s.cfg.ShareRange)
	if err := c.CreateTwin(r.Context(), d); err != nil {
		writeAppError(w, err)
		return
	}
	// The caller's own calendar gained the task too.
	_ = s.deps.Sync.Resync(r.Context())
	w.WriteHeader(http.StatusCreated)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

type errResp struct {
	Error  string            `json:"error"`
	Kind   string            `json:"kind,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errResp{Error: msg})
}

// writeAppError maps an apperr kind onto an HTTP status.
func writeAppError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	resp := errResp{Error: err.Error()}

	var ae *apperr.Error
	if errors.As(err, &ae) {
		resp.Kind = string(ae.Kind)
		resp.Fields = ae.Fields
		if ae.Message != "" {
			resp.Error = ae.Message
		}
		switch ae.Kind {
		case apperr.KindValidation:
			status = http.StatusBadRequest
		case apperr.KindAuth:
			status = http.StatusUnauthorized
		case apperr.KindReadOnly:
			status = http.StatusForbidden
		case apperr.KindInvalidShareToken:
			status = http.StatusGone
		case apperr.KindNetwork:
			status = http.StatusBadGateway
		}
	}
	if status >= 500 {
		appLog.Error("request failed", err, "status", status)
	}
	writeJSON(w, status, resp)
}
