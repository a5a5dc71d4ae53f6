package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNewIdentity(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "plain", input: "alice", wantErr: false},
		{name: "inner space kept", input: "al ice", wantErr: false},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace only", input: " \t\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := NewIdentity(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewIdentity(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Fatalf("expected ValidationError, got %T", err)
				}
				return
			}
			if id.String() != tt.input {
				t.Fatalf("expected identity %q, got %q", tt.input, id)
			}
		})
	}
}

func TestIdentityFromAnyRejectsNonStrings(t *testing.T) {
	for _, v := range []any{nil, 42, true, []string{"alice"}} {
		_, err := IdentityFromAny(v)
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("IdentityFromAny(%v): expected ValidationError, got %v", v, err)
		}
	}

	id, err := IdentityFromAny("bob")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if id != "bob" {
		t.Fatalf("expected bob, got %s", id)
	}
}

func TestStatRendering(t *testing.T) {
	if got := (Stat{}).String(); got != NotAvailable {
		t.Fatalf("expected %s, got %s", NotAvailable, got)
	}
	if got := Available(1500).String(); got != "1500" {
		t.Fatalf("expected 1500, got %s", got)
	}
	if got := Available(12.5).String(); got != "12.5" {
		t.Fatalf("expected 12.5, got %s", got)
	}

	data, err := json.Marshal([]Stat{Available(340), {}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `[340,"N/A"]` {
		t.Fatalf("unexpected json: %s", data)
	}

	var back []Stat
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back[0].Valid || back[0].Value != 340 || back[1].Valid {
		t.Fatalf("unexpected round trip: %#v", back)
	}
}

func TestFlatRecord(t *testing.T) {
	rec := ProfileRecord{
		Identity:   "carol",
		Reputation: Available(1500),
		Solved:     Available(340),
		Badges:     []string{"Guardian", "Annual Badge"},
		Ranking:    Available(200),
	}

	got := rec.Flat().Row()
	want := []string{"carol", "1500", "340", "Guardian, Annual Badge", "200"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("column %s: expected %q, got %q", FlatFields[i], want[i], got[i])
		}
	}

	empty := ProfileRecord{Identity: "dave", Badges: []string{}}
	flat := empty.Flat()
	if flat.Badges != NotAvailable {
		t.Fatalf("expected empty badges to flatten to %s, got %q", NotAvailable, flat.Badges)
	}
	if flat.Rating.Valid || flat.ProblemsSolved.Valid || flat.Ranking.Valid {
		t.Fatalf("expected unavailable stats, got %#v", flat)
	}
}

func TestBatchResultTotal(t *testing.T) {
	res := BatchResult{
		Records:  []ProfileRecord{{Identity: "a"}, {Identity: "b"}},
		Failures: []Failure{{Identity: "c", Reason: "boom"}},
	}
	if res.Total() != 3 {
		t.Fatalf("expected 3, got %d", res.Total())
	}
}
