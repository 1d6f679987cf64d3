package output

// Row is one line of a flattened result: a GroupRow heading followed by a
// FileRow for each member.
type Row interface {
	row()
}

// GroupRow introduces a duplicate group.
type GroupRow struct {
	// Index is the 1-based position of the group.
	Index int
	Group *Group
}

// FileRow is one member of the preceding group.
type FileRow struct {
	Group *Group
	File  FileInfo

	// First is set for the member listed first in its group.
	First bool
}

func (GroupRow) row() {}
func (FileRow) row()  {}

// Rows flattens r into display order.
func Rows(r *Result) []Row {
	rows := make([]Row, 0, len(r.Groups)+r.TotalFiles())
	for i := range r.Groups {
		g := &r.Groups[i]
		rows = append(rows, GroupRow{Index: i + 1, Group: g})
		for j, f := range g.Files {
			rows = append(rows, FileRow{Group: g, File: f, First: j == 0})
		}
	}
	return rows
}
