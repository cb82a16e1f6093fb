package types

import "sort"

// BadgeRecord is one badge holder as loaded from the roster.
type BadgeRecord struct {
	ID                  int
	Name                string
	AuthorizedBuildings []int
}

// CanEnter reports whether the badge is authorized for building.
func (b BadgeRecord) CanEnter(building int) bool {
	for _, id := range b.AuthorizedBuildings {
		if id == building {
			return true
		}
	}
	return false
}

// BadgeDatabase maps badge id to its record. It is built once and then only read.
type BadgeDatabase map[int]BadgeRecord

// Clone returns an independent copy, authorized-building slices included.
func (db BadgeDatabase) Clone() BadgeDatabase {
	out := make(BadgeDatabase, len(db))
	for id, rec := range db {
		rec.AuthorizedBuildings = append([]int(nil), rec.AuthorizedBuildings...)
		out[id] = rec
	}
	return out
}

// IDs returns the badge ids in ascending order.
func (db BadgeDatabase) IDs() []int {
	ids := make([]int, 0, len(db))
	for id := range db {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
