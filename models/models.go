package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// NotAvailable is how an unavailable value is rendered and exported.
const NotAvailable = "N/A"

// Identity names a LeetCode user. Build one with NewIdentity.
type Identity string

func (id Identity) String() string { return string(id) }

// ValidationError reports a malformed identity.
type ValidationError struct {
	Input  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid username %q: %s", fmt.Sprint(e.Input), e.Reason)
}

// NewIdentity validates raw and returns it as an Identity.
func NewIdentity(raw string) (Identity, error) {
	if strings.TrimSpace(raw) == "" {
		return "", &ValidationError{Input: raw, Reason: "username must be a non-empty string"}
	}
	return Identity(raw), nil
}

// IdentityFromAny validates a loosely typed value, such as an entry decoded
// from YAML, and rejects anything that is not a string.
func IdentityFromAny(v any) (Identity, error) {
	s, ok := v.(string)
	if !ok {
		return "", &ValidationError{Input: v, Reason: fmt.Sprintf("username must be a string, got %T", v)}
	}
	return NewIdentity(s)
}

// Stat is a numeric field that may be unavailable. The zero value is
// unavailable.
type Stat struct {
	Value float64
	Valid bool
}

// Available returns a Stat holding v.
func Available(v float64) Stat {
	return Stat{Value: v, Valid: true}
}

func (s Stat) String() string {
	if !s.Valid {
		return NotAvailable
	}
	return strconv.FormatFloat(s.Value, 'f', -1, 64)
}

func (s Stat) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return json.Marshal(NotAvailable)
	}
	return json.Marshal(s.Value)
}

func (s *Stat) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		*s = Available(value)
	default:
		*s = Stat{}
	}
	return nil
}

func (s Stat) MarshalYAML() (any, error) {
	if !s.Valid {
		return NotAvailable, nil
	}
	return s.Value, nil
}

// ProfileRecord is the merged view of one user's profile, badges and
// solved count.
type ProfileRecord struct {
	Identity   Identity `json:"identity"`
	Reputation Stat     `json:"reputation"`
	Solved     Stat     `json:"solved"`
	Badges     []string `json:"badges"`
	Ranking    Stat     `json:"ranking"`
}

// FlatRecord is the export shape of a ProfileRecord.
type FlatRecord struct {
	Username       string `json:"Username" yaml:"Username"`
	Rating         Stat   `json:"Rating" yaml:"Rating"`
	ProblemsSolved Stat   `json:"Problems Solved" yaml:"Problems Solved"`
	Badges         string `json:"Badges" yaml:"Badges"`
	Ranking        Stat   `json:"Ranking" yaml:"Ranking"`
}

// FlatFields lists the export column names in order.
var FlatFields = []string{"Username", "Rating", "Problems Solved", "Badges", "Ranking"}

func (r ProfileRecord) Flat() FlatRecord {
	badges := NotAvailable
	if len(r.Badges) > 0 {
		badges = strings.Join(r.Badges, ", ")
	}
	return FlatRecord{
		Username:       r.Identity.String(),
		Rating:         r.Reputation,
		ProblemsSolved: r.Solved,
		Badges:         badges,
		Ranking:        r.Ranking,
	}
}

// Row returns the flat record as strings in FlatFields order.
func (f FlatRecord) Row() []string {
	return []string{f.Username, f.Rating.String(), f.ProblemsSolved.String(), f.Badges, f.Ranking.String()}
}

// Failure records why a user could not be aggregated.
type Failure struct {
	Identity string `json:"identity"`
	Reason   string `json:"reason"`
	Err      error  `json:"-"`
}

// BatchResult holds the outcome of one batch. Records are in completion
// order.
type BatchResult struct {
	Records  []ProfileRecord
	Failures []Failure
}

// Total is the number of users accounted for.
func (b BatchResult) Total() int {
	return len(b.Records) + len(b.Failures)
}
