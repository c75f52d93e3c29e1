package domain

// Column ids of the standard board skeleton.
const (
	ColumnBacklog    = "backlog"
	ColumnTodo       = "todo"
	ColumnInProgress = "inProgress"
	ColumnDone       = "done"
)

// DefaultColumnOrder is the left-to-right order of the standard skeleton.
var DefaultColumnOrder = []string{ColumnBacklog, ColumnTodo, ColumnInProgress, ColumnDone}

var defaultColumnTitles = map[string]string{
	ColumnBacklog:    "Backlog",
	ColumnTodo:       "To Do",
	ColumnInProgress: "In Progress",
	ColumnDone:       "Done",
}

// DefaultBoard returns an empty board with the standard four columns. It
// is used on first run, when a stored board turns out to be corrupt, and
// as the skeleton for tabular import.
func DefaultBoard() Board {
	cols := make(map[string]Column, len(DefaultColumnOrder))
	order := make([]string, len(DefaultColumnOrder))
	for i, id := range DefaultColumnOrder {
		cols[id] = Column{ID: id, Title: defaultColumnTitles[id], CardIDs: []string{}}
		order[i] = id
	}
	return Board{Columns: cols, Cards: map[string]Card{}, ColumnOrder: order}
}
