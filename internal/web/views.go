package web

import (
	"fmt"
	"net/http"
	"time"

	"weekcal/internal/layout"
	appLog "weekcal/internal/log"
	"weekcal/internal/model"
	"weekcal/internal/timeutil"
)

const dateLayout = "2006-01-02"

// weekOf resolves ?date= into the displayed week. A missing or malformed
// date means the current week.
func (s *Server) weekOf(r *http.Request) [7]time.Time {
	now := s.now().In(s.loc)
	d := now
	if q := r.URL.Query().Get("date"); q != "" {
		if t, err := time.ParseInLocation(dateLayout, q, s.loc); err == nil {
			d = t
		}
	}
	return timeutil.WeekOf(d, s.cfg.FirstWeekday())
}

// weekBounds returns [first midnight, midnight after the last day).
func weekBounds(week [7]time.Time) (time.Time, time.Time) {
	return week[0], week[6].AddDate(0, 0, 1)
}

// JSON shapes.

type boxDTO struct {
	ID       int64     `json:"id"`
	Kind     string    `json:"kind"`
	Title    string    `json:"title"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Hours    float64   `json:"hours"`
	Priority int       `json:"priority,omitempty"`
	Color    string    `json:"color"`
	ReadOnly bool      `json:"read_only"`
	Top      float64   `json:"top"`
	Height   float64   `json:"height"`
	Column   int       `json:"column"`
	Columns  int       `json:"columns"`
	Left     float64   `json:"left"`
	Width    float64   `json:"width"`
}

type dayDTO struct {
	Date   string   `json:"date"`
	Name   string   `json:"name"`
	Today  bool     `json:"today"`
	Events []boxDTO `json:"events"`
}

type noticeDTO struct {
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

type weekResponse struct {
	Label  string     `json:"label"`
	Start  string     `json:"start"`
	State  string     `json:"state"`
	Owner  string     `json:"owner,omitempty"`
	Notice *noticeDTO `json:"notice,omitempty"`
	Days   []dayDTO   `json:"days"`
}

func (s *Server) buildWeek(week [7]time.Time, events []model.Event) weekResponse {
	now := s.now()
	from, to := weekBounds(week)
	laid := s.grid.Week(layout.InRange(events, from, to), week)

	resp := weekResponse{
		Label: timeutil.MonthYearLabel(week),
		Start: week[0].Format(dateLayout),
		Days:  make([]dayDTO, 7),
	}
	for i, day := range week {
		dd := dayDTO{
			Date:   day.Format(dateLayout),
			Name:   timeutil.DayNames[day.Weekday()],
			Today:  timeutil.IsToday(day, now),
			Events: make([]boxDTO, 0, len(laid[i])),
		}
		for _, b := range laid[i] {
			ev := b.Event
			dd.Events = append(dd.Events, boxDTO{
				ID:       ev.ID(),
				Kind:     ev.Kind.String(),
				Title:    ev.Title,
				Start:    ev.Start.In(s.loc),
				End:      ev.End().In(s.loc),
				Hours:    ev.Hours(),
				Priority: ev.Priority,
				Color:    ev.Color(),
				ReadOnly: ev.ReadOnly(),
				Top:      b.Top,
				Height:   b.Height,
				Column:   b.Column,
				Columns:  b.Columns,
				Left:     b.Left,
				Width:    b.Width,
			})
		}
		resp.Days[i] = dd
	}
	return resp
}

// HTML page data.

type hourView struct {
	Top   float64
	Label string
}

type boxView struct {
	ID        int64
	Title     string
	Color     string
	ReadOnly  bool
	TimeRange string
	Top       float64
	Height    float64
	LeftPct   string
	WidthPct  string
}

type dayView struct {
	Name  string
	Date  string
	Today bool
	Boxes []boxView
}

type pageData struct {
	Title      string
	Label      string
	Owner      string
	State      string
	Notice     string
	PrevDate   string
	NextDate   string
	TodayDate  string
	GridHeight float64
	Hours      []hourView
	Days       []dayView
}

func (s *Server) buildPage(week [7]time.Time, wr weekResponse) pageData {
	pd := pageData{
		Title:      "weekcal · " + wr.Label,
		Label:      wr.Label,
		Owner:      wr.Owner,
		State:      wr.State,
		PrevDate:   timeutil.ShiftWeek(week[0], -1).Format(dateLayout),
		NextDate:   timeutil.ShiftWeek(week[0], 1).Format(dateLayout),
		TodayDate:  s.now().In(s.loc).Format(dateLayout),
		GridHeight: 24 * s.grid.PxPerHour,
		Hours:      make([]hourView, 24),
		Days:       make([]dayView, len(wr.Days)),
	}
	if wr.Notice != nil {
		pd.Notice = wr.Notice.Message
	}
	for h := 0; h < 24; h++ {
		pd.Hours[h] = hourView{Top: float64(h) * s.grid.PxPerHour, Label: timeutil.FormatHour(h)}
	}
	for i, d := range wr.Days {
		dv := dayView{Name: d.Name, Date: d.Date[5:], Today: d.Today}
		for _, e := range d.Events {
			dv.Boxes = append(dv.Boxes, boxView{
				ID:        e.ID,
				Title:     e.Title,
				Color:     e.Color,
				ReadOnly:  e.ReadOnly,
				TimeRange: e.Start.Format("15:04") + " - " + e.End.Format("15:04"),
				Top:       e.Top,
				Height:    e.Height,
				LeftPct:   fmt.Sprintf("%.2f", e.Left*100),
				WidthPct:  fmt.Sprintf("%.2f", e.Width*100),
			})
		}
		pd.Days[i] = dv
	}
	return pd
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.pages.ExecuteTemplate(w, name, data); err != nil {
		appLog.Error("failed to execute template", err, "template", name)
	}
}
