package store

import (
	"fmt"
	"slices"

	"github.com/pkordes/tabinico/internal/domain"
)

// --- Trip settings -------------------------------------------------------

// SetDuration changes the trip length. Schedule items on days past the new
// length are kept.
func (s *Store) SetDuration(days int) error {
	if err := validateDuration(days); err != nil {
		return err
	}
	return s.UpdateTrip(domain.TripPatch{}.WithDuration(days))
}

// AddDay extends the trip by one day and returns the new length.
func (s *Store) AddDay() (int, error) {
	var days int
	err := s.mutate(func(t domain.Trip) (domain.TripPatch, error) {
		days = t.Duration + 1
		return domain.TripPatch{}.WithDuration(days), nil
	})
	return days, err
}

// --- Schedule ------------------------------------------------------------

// AddScheduleItem appends item with a fresh ID. Day is not checked against
// the trip duration.
func (s *Store) AddScheduleItem(item domain.ScheduleItem) (domain.ScheduleItem, error) {
	if err := required("title", item.Title); err != nil {
		return domain.ScheduleItem{}, err
	}
	item.ID = domain.NewID()
	item.Attachments = slices.Clone(item.Attachments)

	err := s.mutate(func(t domain.Trip) (domain.TripPatch, error) {
		return domain.TripPatch{}.WithSchedule(append(slices.Clone(t.Schedule), item)), nil
	})
	return item, err
}

// ReplaceScheduleItem overwrites the item with the same ID. The item's
// attachments are kept as stored; item.Attachments is ignored.
func (s *Store) ReplaceScheduleItem(item domain.ScheduleItem) error {
	if err := required("title", item.Title); err != nil {
		return err
	}
	return s.mutate(func(t domain.Trip) (domain.TripPatch, error) {
		i := slices.IndexFunc(t.Schedule, func(it domain.ScheduleItem) bool { return it.ID == item.ID })
		if i < 0 {
			return domain.TripPatch{}, errItemNotFound("schedule item", item.ID)
		}
		item.Attachments = slices.Clone(t.Schedule[i].Attachments)
		next := slices.Clone(t.Schedule)
		next[i] = item
		return domain.TripPatch{}.WithSchedule(next), nil
	})
}

// DeleteScheduleItem removes the item with id.
func (s *Store) DeleteScheduleItem(id string) error {
	return s.mutate(func(t domain.Trip) (domain.TripPatch, error) {
		next := slices.DeleteFunc(slices.Clone(t.Schedule), func(it domain.ScheduleItem) bool { return it.ID == id })
		if len(next) == len(t.Schedule) {
			return domain.TripPatch{}, errItemNotFound("schedule item", id)
		}
		return domain.TripPatch{}.WithSchedule(next), nil
	})
}

// DaySchedule returns one day's items ordered by start time.
func (s *Store) DaySchedule(day int) ([]domain.ScheduleItem, error) {
	t, err := s.Current()
	if err != nil {
		return nil, err
	}
	return domain.DaySchedule(t.Schedule, day), nil
}

// AddAttachment appends a to the attachments of schedule item itemID.
func (s *Store) AddAttachment(itemID string, a domain.Attachment) error {
	return s.updateScheduleItem(itemID, func(it *domain.ScheduleItem) error {
		it.Attachments = append(slices.Clone(it.Attachments), a)
		return nil
	})
}

// RemoveAttachment drops attachment attachmentID from item itemID.
// The stored file is left in place.
func (s *Store) RemoveAttachment(itemID, attachmentID string) error {
	return s.updateScheduleItem(itemID, func(it *domain.ScheduleItem) error {
		next := slices.DeleteFunc(slices.Clone(it.Attachments), func(a domain.Attachment) bool { return a.ID == attachmentID })
		if len(next) == len(it.Attachments) {
			return errItemNotFound("attachment", attachmentID)
		}
		it.Attachments = next
		return nil
	})
}

func (s *Store) updateScheduleItem(itemID string, fn func(it *domain.ScheduleItem) error) error {
	return s.mutate(func(t domain.Trip) (domain.TripPatch, error) {
		i := slices.IndexFunc(t.Schedule, func(it domain.ScheduleItem) bool { return it.ID == itemID })
		if i < 0 {
			return domain.TripPatch{}, errItemNotFound("schedule item", itemID)
		}
		next := slices.Clone(t.Schedule)
		if err := fn(&next[i]); err != nil {
			return domain.TripPatch{}, err
		}
		return domain.TripPatch{}.WithSchedule(next), nil
	})
}

// --- Packing list --------------------------------------------------------

// AddPackingItem adds an unchecked item under assignedTo, which is a member
// name or one of the common/extra sentinels.
func (s *Store) AddPackingItem(text, assignedTo string) (domain.PackingItem, error) {
	if err := required("item", text); err != nil {
		return domain.PackingItem{}, err
	}
	if assignedTo == "" {
		assignedTo = domain.AssignCommon
	}
	item := domain.PackingItem{ID: domain.NewID(), Item: text, AssignedTo: assignedTo}

	err := s.mutate(func(t domain.Trip) (domain.TripPatch, error) {
		return domain.TripPatch{}.WithCheckList(append(slices.Clone(t.CheckList), item)), nil
	})
	return item, err
}

// TogglePackingItem flips the checked flag and returns the new value.
func (s *Store) TogglePackingItem(id string) (bool, error) {
	var checked bool
	err := s.mutate(func(t domain.Trip) (domain.TripPatch, error) {
		i := slices.IndexFunc(t.CheckList, func(it domain.PackingItem) bool { return it.ID == id })
		if i < 0 {
			return domain.TripPatch{}, errItemNotFound("packing item", id)
		}
		next := slices.Clone(t.CheckList)
		next[i].Checked = !next[i].Checked
		checked = next[i].Checked
		return domain.TripPatch{}.WithCheckList(next), nil
	})
	return checked, err
}

// DeletePackingItem removes the item with id.
func (s *Store) DeletePackingItem(id string) error {
	return s.mutate(func(t domain.Trip) (domain.TripPatch, error) {
		next := slices.DeleteFunc(slices.Clone(t.CheckList), func(it domain.PackingItem) bool { return it.ID == id })
		if len(next) == len(t.CheckList) {
			return domain.TripPatch{}, errItemNotFound("packing item", id)
		}
		return domain.TripPatch{}.WithCheckList(next), nil
	})
}

// PackingList returns the items under tab.
func (s *Store) PackingList(tab string) ([]domain.PackingItem, error) {
	t, err := s.Current()
	if err != nil {
		return nil, err
	}
	return domain.FilterPacking(t.CheckList, tab), nil
}

// SetCheckListTabs replaces the tab order.
func (s *Store) SetCheckListTabs(tabs []string) error {
	for _, tab := range tabs {
		if err := required("tab", tab); err != nil {
			return err
		}
	}
	return s.UpdateTrip(domain.TripPatch{}.WithCheckListTabs(slices.Clone(tabs)))
}

// CheckListTabs returns the stored tab order, or the default order built
// from the members when none is stored.
func (s *Store) CheckListTabs() ([]string, error) {
	t, err := s.Current()
	if err != nil {
		return nil, err
	}
	if len(t.CheckListTabs) == 0 {
		return domain.DefaultTabs(t.Members), nil
	}
	return t.CheckListTabs, nil
}

// --- Scrap board ---------------------------------------------------------

// AddScrap pins a new card, newest first.
func (s *Store) AddScrap(item domain.ScrapItem) (domain.ScrapItem, error) {
	if err := required("title", item.Title); err != nil {
		return domain.ScrapItem{}, err
	}
	item.ID = domain.NewID()
	item.AddedAt = s.deps.Now()

	err := s.mutate(func(t domain.Trip) (domain.TripPatch, error) {
		return domain.TripPatch{}.WithScraps(append([]domain.ScrapItem{item}, t.Scraps...)), nil
	})
	return item, err
}

// ReplaceScrap overwrites the card with the same ID, keeping its author and
// creation time.
func (s *Store) ReplaceScrap(item domain.ScrapItem) error {
	if err := required("title", item.Title); err != nil {
		return err
	}
	return s.updateScrap(item.ID, func(sc *domain.ScrapItem) {
		item.AddedBy = sc.AddedBy
		item.AddedAt = sc.AddedAt
		*sc = item
	})
}

// DeleteScrap removes the card with id.
func (s *Store) DeleteScrap(id string) error {
	return s.mutate(func(t domain.Trip) (domain.TripPatch, error) {
		next := slices.DeleteFunc(slices.Clone(t.Scraps), func(sc domain.ScrapItem) bool { return sc.ID == id })
		if len(next) == len(t.Scraps) {
			return domain.TripPatch{}, errItemNotFound("scrap", id)
		}
		return domain.TripPatch{}.WithScraps(next), nil
	})
}

// ToggleWantToGo flips the favourite flag and returns the new value.
func (s *Store) ToggleWantToGo(id string) (bool, error) {
	var want bool
	err := s.updateScrap(id, func(sc *domain.ScrapItem) {
		sc.WantToGo = !sc.WantToGo
		want = sc.WantToGo
	})
	return want, err
}

func (s *Store) updateScrap(id string, fn func(sc *domain.ScrapItem)) error {
	return s.mutate(func(t domain.Trip) (domain.TripPatch, error) {
		i := slices.IndexFunc(t.Scraps, func(sc domain.ScrapItem) bool { return sc.ID == id })
		if i < 0 {
			return domain.TripPatch{}, errItemNotFound("scrap", id)
		}
		next := slices.Clone(t.Scraps)
		fn(&next[i])
		return domain.TripPatch{}.WithScraps(next), nil
	})
}

func errItemNotFound(kind, id string) error {
	return fmt.Errorf("%w: %s %q", domain.ErrNotFound, kind, id)
}
