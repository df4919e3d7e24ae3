package domain

import "time"

// Field identifies one top-level field of a Trip document.
// Remote merges operate per Field: two editors touching different fields
// never clobber each other, two editors touching the same field race and
// the last write wins.
type Field uint16

const (
	FieldTitle Field = 1 << iota
	FieldMembers
	FieldDate
	FieldImage
	FieldDuration
	FieldSchedule
	FieldCheckList
	FieldCheckListTabs
	FieldExpenses
	FieldScraps
)

// allFields lists every Field in document order.
var allFields = []Field{
	FieldTitle, FieldMembers, FieldDate, FieldImage, FieldDuration,
	FieldSchedule, FieldCheckList, FieldCheckListTabs, FieldExpenses, FieldScraps,
}

// Key returns the JSON key the field is stored under.
func (f Field) Key() string {
	switch f {
	case FieldTitle:
		return "title"
	case FieldMembers:
		return "members"
	case FieldDate:
		return "date"
	case FieldImage:
		return "image"
	case FieldDuration:
		return "duration"
	case FieldSchedule:
		return "schedule"
	case FieldCheckList:
		return "checkList"
	case FieldCheckListTabs:
		return "checkListTabs"
	case FieldExpenses:
		return "expenses"
	case FieldScraps:
		return "scraps"
	}
	return ""
}

// TripPatch is a partial update of a Trip. Only the fields recorded in the
// set are meaningful; the zero TripPatch changes nothing.
// Build one with the With* methods:
//
//	p := domain.TripPatch{}.WithTitle("Sapporo").WithDuration(3)
type TripPatch struct {
	set Field

	title         string
	members       []string
	date          *time.Time
	image         *string
	duration      int
	schedule      []ScheduleItem
	checkList     []PackingItem
	checkListTabs []string
	expenses      []Expense
	scraps        []ScrapItem
}

// Has reports whether f is part of the patch.
func (p TripPatch) Has(f Field) bool { return p.set&f != 0 }

// Empty reports whether the patch changes nothing.
func (p TripPatch) Empty() bool { return p.set == 0 }

// Fields returns the fields carried by the patch in document order.
func (p TripPatch) Fields() []Field {
	var out []Field
	for _, f := range allFields {
		if p.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

func (p TripPatch) WithTitle(v string) TripPatch {
	p.set |= FieldTitle
	p.title = v
	return p
}

func (p TripPatch) WithMembers(v []string) TripPatch {
	p.set |= FieldMembers
	p.members = nonNil(v)
	return p
}

// WithDate sets the trip date; nil clears it.
func (p TripPatch) WithDate(v *time.Time) TripPatch {
	p.set |= FieldDate
	p.date = v
	return p
}

// WithImage sets the cover image URL; nil clears it.
func (p TripPatch) WithImage(v *string) TripPatch {
	p.set |= FieldImage
	p.image = v
	return p
}

func (p TripPatch) WithDuration(v int) TripPatch {
	p.set |= FieldDuration
	p.duration = v
	return p
}

func (p TripPatch) WithSchedule(v []ScheduleItem) TripPatch {
	p.set |= FieldSchedule
	p.schedule = nonNil(v)
	return p
}

func (p TripPatch) WithCheckList(v []PackingItem) TripPatch {
	p.set |= FieldCheckList
	p.checkList = nonNil(v)
	return p
}

func (p TripPatch) WithCheckListTabs(v []string) TripPatch {
	p.set |= FieldCheckListTabs
	p.checkListTabs = nonNil(v)
	return p
}

func (p TripPatch) WithExpenses(v []Expense) TripPatch {
	p.set |= FieldExpenses
	p.expenses = nonNil(v)
	return p
}

func (p TripPatch) WithScraps(v []ScrapItem) TripPatch {
	p.set |= FieldScraps
	p.scraps = nonNil(v)
	return p
}

// Apply returns t with every patched field replaced.
func (p TripPatch) Apply(t Trip) Trip {
	for _, f := range p.Fields() {
		switch f {
		case FieldTitle:
			t.Title = p.title
		case FieldMembers:
			t.Members = p.members
		case FieldDate:
			t.Date = p.date
		case FieldImage:
			t.Image = p.image
		case FieldDuration:
			t.Duration = p.duration
		case FieldSchedule:
			t.Schedule = p.schedule
		case FieldCheckList:
			t.CheckList = p.checkList
		case FieldCheckListTabs:
			t.CheckListTabs = p.checkListTabs
		case FieldExpenses:
			t.Expenses = p.expenses
		case FieldScraps:
			t.Scraps = p.scraps
		}
	}
	return t
}

// Values returns the patched fields keyed by their JSON names, ready to be
// merged into a stored document.
func (p TripPatch) Values() map[string]any {
	out := make(map[string]any, len(allFields))
	for _, f := range p.Fields() {
		switch f {
		case FieldTitle:
			out[f.Key()] = p.title
		case FieldMembers:
			out[f.Key()] = p.members
		case FieldDate:
			out[f.Key()] = p.date
		case FieldImage:
			out[f.Key()] = p.image
		case FieldDuration:
			out[f.Key()] = p.duration
		case FieldSchedule:
			out[f.Key()] = p.schedule
		case FieldCheckList:
			out[f.Key()] = p.checkList
		case FieldCheckListTabs:
			out[f.Key()] = p.checkListTabs
		case FieldExpenses:
			out[f.Key()] = p.expenses
		case FieldScraps:
			out[f.Key()] = p.scraps
		}
	}
	return out
}

// FullPatch returns a patch that carries every field of t.
func FullPatch(t Trip) TripPatch {
	return TripPatch{}.
		WithTitle(t.Title).
		WithMembers(t.Members).
		WithDate(t.Date).
		WithImage(t.Image).
		WithDuration(t.Duration).
		WithSchedule(t.Schedule).
		WithCheckList(t.CheckList).
		WithCheckListTabs(t.CheckListTabs).
		WithExpenses(t.Expenses).
		WithScraps(t.Scraps)
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}
	return v
}
