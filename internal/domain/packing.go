package domain

// Packing list assignment sentinels. Any other value is a member name.
const (
	AssignCommon = "common"
	AssignExtra  = "extra"
)

// PackingItem is one checklist entry.
type PackingItem struct {
	ID         string `json:"id"`
	Item       string `json:"item"`
	AssignedTo string `json:"assignedTo"`
	Checked    bool   `json:"checked"`
}

// FilterPacking returns the items shown under tab, which is either one of the
// sentinels or a member name.
func FilterPacking(items []PackingItem, tab string) []PackingItem {
	out := []PackingItem{}
	for _, it := range items {
		if it.AssignedTo == tab {
			out = append(out, it)
		}
	}
	return out
}

// DefaultTabs returns the tab order used when a trip has no explicit
// checklist tabs: shared items, one tab per member, then extras.
func DefaultTabs(members []string) []string {
	tabs := make([]string, 0, len(members)+2)
	tabs = append(tabs, AssignCommon)
	tabs = append(tabs, members...)
	return append(tabs, AssignExtra)
}
