package workspace

import (
	"log/slog"
)

// Predicate decides whether a unit is returned by ListUnits. An error means
// the unit's metadata could not be read; the unit is then excluded.
type Predicate func(*Unit) (bool, error)

// ListUnits flattens the solution tree depth-first in file order and returns
// every unit accepted by pred. Folders are returned when they satisfy pred
// themselves; their children are visited either way.
func ListUnits(sln *Solution, pred Predicate) []*Unit {
	return Collector{}.List(sln, pred)
}

// Collector is ListUnits with a logger for excluded units. The zero value
// logs to slog.Default.
type Collector struct {
	Logger *slog.Logger
}

// List behaves like ListUnits.
func (c Collector) List(sln *Solution, pred Predicate) []*Unit {
	log := c.Logger
	if log == nil {
		log = slog.Default()
	}
	var out []*Unit
	visited := make(map[*Unit]bool)
	for _, root := range sln.Roots {
		out = collect(log, root, pred, visited, out)
	}
	return out
}

func collect(log *slog.Logger, u *Unit, pred Predicate, visited map[*Unit]bool, out []*Unit) []*Unit {
	if visited[u] {
		return out
	}
	visited[u] = true

	ok, err := pred(u)
	if err != nil {
		log.Debug("excluding unit", slog.String("unit", u.Name), slog.String("error", err.Error()))
	} else if ok {
		out = append(out, u)
	}

	for _, child := range u.Children {
		out = collect(log, child, pred, visited, out)
	}
	return out
}

// Projects is a Predicate accepting every project unit.
func Projects(u *Unit) (bool, error) {
	return u.Kind == KindProject, nil
}
