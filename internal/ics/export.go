package ics

import (
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"weekcal/internal/model"
)

const prodID = "-//weekcal//weekcal 1.0//EN"

// uidSpace namespaces exported UIDs so the same block always exports with
// the same UID.
var uidSpace = uuid.MustParse("6f1c5f4e-5a34-4bd8-9a0e-3f0a3c5d7e21")

// Export renders events as an iCalendar document. Busy slots export as
// opaque "Busy" events with CLASS:PRIVATE.
func Export(events []model.Event, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(prodID)

	for _, ev := range events {
		vev := cal.AddEvent(eventUID(ev))
		vev.SetDtStampTime(now.UTC())
		vev.SetStartAt(ev.Start.UTC())
		vev.SetEndAt(ev.End().UTC())
		vev.SetSummary(ev.Title)

		if ev.ReadOnly() {
			vev.SetProperty(ical.ComponentPropertyClass, "PRIVATE")
			continue
		}
		if p := priorityToICS(ev.Priority); p > 0 {
			vev.SetProperty(ical.ComponentPropertyPriority, strconv.Itoa(p))
		}
	}
	return cal.Serialize()
}

func eventUID(ev model.Event) string {
	var name string
	if ev.ReadOnly() {
		name = "busy-" + ev.Start.UTC().Format(time.RFC3339) + "-" + strconv.Itoa(ev.SlotIndex)
	} else {
		name = "block-" + strconv.FormatInt(ev.BlockID, 10)
	}
	return uuid.NewSHA1(uidSpace, []byte(name)).String() + "@weekcal"
}
