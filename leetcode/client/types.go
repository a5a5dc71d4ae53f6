package client

import (
	"context"
	"net/url"

	"github.com/tnicklin/leetcode_tracker/models"
)

// Kind names one of the remote resources available per user.
type Kind int

const (
	KindProfile Kind = iota
	KindBadges
	KindSolved
)

// Kinds lists every resource kind.
var Kinds = []Kind{KindProfile, KindBadges, KindSolved}

func (k Kind) String() string {
	switch k {
	case KindProfile:
		return "profile"
	case KindBadges:
		return "badges"
	case KindSolved:
		return "solved"
	default:
		return "unknown"
	}
}

// escapedPath returns the escaped path of the resource for identity,
// relative to the API base.
func (k Kind) escapedPath(identity models.Identity) string {
	p := "/" + url.PathEscape(identity.String())
	switch k {
	case KindBadges:
		return p + "/badges"
	case KindSolved:
		return p + "/solved"
	default:
		return p
	}
}

// Payload is a decoded JSON object. Numbers are json.Number.
type Payload map[string]any

// Client performs single resource lookups against the LeetCode stats API.
type Client interface {
	Fetch(ctx context.Context, identity models.Identity, kind Kind) (Payload, error)
}
