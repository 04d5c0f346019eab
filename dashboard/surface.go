package dashboard

import (
	"maps"
	"slices"
	"sync"
)

// TableBodyID is the element the rows are written into.
const TableBodyID = "bundle-tbody"

// Surface is where the controller writes its output. Implementations must
// apply ReplaceRows as a single update.
type Surface interface {
	ReplaceRows(rows []Row)
	SetField(id, text string)
	// Reset returns the surface to what a freshly loaded page shows.
	Reset()
}

const (
	LoadingMessage = "Loading bundle data..."
	EmptyField     = "-"
)

// FieldIDs lists the stat fields in display order.
var FieldIDs = []string{FieldTotalEntries, FieldLatestAndroid, FieldLatestIOS, FieldLastUpdated}

func loadingRow() Row {
	return Row{Cells: []Cell{{Class: "loading", Text: LoadingMessage, ColSpan: Columns}}}
}

// surfaceState is the rows and fields shared by the bundled surfaces.
type surfaceState struct {
	mu     sync.RWMutex
	rows   []Row
	fields map[string]string
}

func (s *surfaceState) reset() {
	s.rows = []Row{loadingRow()}
	s.fields = make(map[string]string, len(FieldIDs))
	for _, id := range FieldIDs {
		s.fields[id] = EmptyField
	}
}

// snapshot must be called with mu held.
func (s *surfaceState) snapshot() ([]Row, map[string]string) {
	return slices.Clone(s.rows), maps.Clone(s.fields)
}
