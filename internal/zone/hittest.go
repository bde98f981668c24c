package zone

import "github.com/ironsheep/leakzone-mcp/internal/geometry"

// Locate returns the first zone, in store order, whose box contains p.
// Edges count as inside. Overlaps resolve to the earliest-registered zone.
func Locate(p geometry.Point, zones []Record) (Record, bool) {
	for _, r := range zones {
		if r.Box.Contains(p) {
			return r, true
		}
	}
	return Record{}, false
}

// LocateAll returns every zone containing p, in store order.
func LocateAll(p geometry.Point, zones []Record) []Record {
	var out []Record
	for _, r := range zones {
		if r.Box.Contains(p) {
			out = append(out, r)
		}
	}
	return out
}
