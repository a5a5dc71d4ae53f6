// Package ranking orders profile records by one stat.
//
// Unavailable values always sort after every available value, whatever the
// direction, and keep their insertion order among themselves. Stored records
// are never modified.
package ranking

import (
	"sort"

	"github.com/tnicklin/leetcode_tracker/models"
)

// Field selects the stat a view is ordered by.
type Field int

const (
	// FieldReputation orders by reputation, highest first.
	FieldReputation Field = iota
	// FieldSolved orders by solved problems, highest first.
	FieldSolved
	// FieldRanking orders by global ranking position, best (lowest) first.
	FieldRanking
)

func (f Field) String() string {
	switch f {
	case FieldReputation:
		return "Rating"
	case FieldSolved:
		return "Problems Solved"
	case FieldRanking:
		return "Ranking"
	default:
		return "unknown"
	}
}

// Value returns the stat of r selected by f.
func (f Field) Value(r models.ProfileRecord) models.Stat {
	switch f {
	case FieldReputation:
		return r.Reputation
	case FieldSolved:
		return r.Solved
	case FieldRanking:
		return r.Ranking
	default:
		return models.Stat{}
	}
}

func (f Field) ascending() bool {
	return f == FieldRanking
}

// RankBy returns a stably sorted copy of records.
func RankBy(records []models.ProfileRecord, field Field) []models.ProfileRecord {
	view := make([]models.ProfileRecord, len(records))
	copy(view, records)

	sort.SliceStable(view, func(i, j int) bool {
		a, b := field.Value(view[i]), field.Value(view[j])
		switch {
		case !a.Valid:
			return false
		case !b.Valid:
			return true
		case field.ascending():
			return a.Value < b.Value
		default:
			return a.Value > b.Value
		}
	})
	return view
}

// Views holds the two standard orderings of a batch.
type Views struct {
	ByReputation []models.ProfileRecord
	BySolved     []models.ProfileRecord
}

// Rank builds both standard views.
func Rank(records []models.ProfileRecord) Views {
	return Views{
		ByReputation: RankBy(records, FieldReputation),
		BySolved:     RankBy(records, FieldSolved),
	}
}

// Top returns at most the first n entries of view. A non-positive n returns
// the whole view.
func Top(view []models.ProfileRecord, n int) []models.ProfileRecord {
	if n <= 0 || n >= len(view) {
		return view
	}
	return view[:n]
}
