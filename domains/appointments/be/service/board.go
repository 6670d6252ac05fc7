package service

import (
	"slices"
	"strings"
)

// Board is the column-grouped read model for dashboards. It always carries the
// five fixed columns in order, each possibly empty.
type Board struct {
	Columns []BoardColumn
}

// BoardColumn groups the ordered appointments of a single status.
type BoardColumn struct {
	Status       Status
	Appointments []Appointment
}

// BuildBoard projects a set of appointments into column-grouped, ordered board
// data. Pure and deterministic: position ascending, ties broken by scheduled
// start, then by id, so identical inputs always produce identical output.
func BuildBoard(appointments []Appointment) Board {
	byStatus := make(map[Status][]Appointment, len(Columns))
	for _, appt := range appointments {
		byStatus[appt.Status] = append(byStatus[appt.Status], appt)
	}

	board := Board{Columns: make([]BoardColumn, 0, len(Columns))}
	for _, status := range Columns {
		column := slices.Clone(byStatus[status])
		slices.SortFunc(column, compareBoardOrder)
		board.Columns = append(board.Columns, BoardColumn{Status: status, Appointments: column})
	}
	return board
}

func compareBoardOrder(a, b Appointment) int {
	if a.Position != b.Position {
		return a.Position - b.Position
	}
	if !a.ScheduledStart.Equal(b.ScheduledStart) {
		if a.ScheduledStart.Before(b.ScheduledStart) {
			return -1
		}
		return 1
	}
	return strings.Compare(a.ID.String(), b.ID.String())
}
