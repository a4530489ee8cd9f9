package scheduler

import (
	"sort"
	"time"
)

// InsertPinned places date-pinned, user-specific prompts into a built queue.
//
// Pinned entries are processed in date order. When the target date already
// holds a general slot, every general slot from that date onward moves
// forward one day, tail first so nothing is overwritten, and the date range
// grows by one day to fit the last shifted slot. A free target date needs no
// shift. Pinned slots are keyed by (date, user) and never displace each
// other or collide with general slots.
//
// Every general slot present before insertion survives afterward; pinned
// slots are purely additive. Returns the updated queue and date range.
func InsertPinned(queue []Slot, pinned []Pinned, dates []time.Time) ([]Slot, []time.Time) {
	updated := make([]Slot, len(queue))
	copy(updated, queue)

	updatedDates := make([]time.Time, len(dates))
	copy(updatedDates, dates)

	ordered := make([]Pinned, len(pinned))
	copy(ordered, pinned)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date.Before(ordered[j].Date)
	})

	for _, pin := range ordered {
		target := Midnight(pin.Date)

		if generalSlotAt(updated, target) {
			shiftFrom(updated, target)
			updatedDates = extendRange(updatedDates)
		}

		userID := pin.UserID
		updated = append(updated, Slot{
			Date:     target,
			PromptID: pin.PromptID,
			UserID:   &userID,
		})
	}

	return updated, updatedDates
}

func generalSlotAt(queue []Slot, date time.Time) bool {
	for _, slot := range queue {
		if slot.General() && SameDate(slot.Date, date) {
			return true
		}
	}
	return false
}

// shiftFrom moves every general slot on or after the given date forward one
// day. Slots are visited latest-first so a slot is never pushed onto a date
// that still holds an unmoved one.
func shiftFrom(queue []Slot, date time.Time) {
	indexes := make([]int, 0, len(queue))
	for i, slot := range queue {
		if slot.General() && !slot.Date.Before(date) {
			indexes = append(indexes, i)
		}
	}
	sort.Slice(indexes, func(i, j int) bool {
		return queue[indexes[i]].Date.After(queue[indexes[j]].Date)
	})
	for _, i := range indexes {
		queue[i].Date = queue[i].Date.AddDate(0, 0, 1)
	}
}

func extendRange(dates []time.Time) []time.Time {
	if len(dates) == 0 {
		return dates
	}
	last := dates[0]
	for _, d := range dates[1:] {
		if d.After(last) {
			last = d
		}
	}
	return append(dates, last.AddDate(0, 0, 1))
}
