package leetcode

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tnicklin/leetcode_tracker/leetcode/client"
	"github.com/tnicklin/leetcode_tracker/models"
)

type fakeResponse struct {
	payload client.Payload
	err     error
	delay   time.Duration
	panics  bool
}

// fakeClient answers lookups from a table keyed by "user/kind". Unknown
// lookups return a protocol failure.
type fakeClient struct {
	mu        sync.Mutex
	responses map[string]fakeResponse
	calls     []string
	count     atomic.Int64
}

func newFakeClient() *fakeClient {
	return &fakeClient{responses: map[string]fakeResponse{}}
}

func (f *fakeClient) set(user string, kind client.Kind, resp fakeResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[user+"/"+kind.String()] = resp
}

// ok registers successful responses for all three resources.
func (f *fakeClient) ok(user string, reputation, ranking, solved int, badges ...string) {
	entries := make([]any, 0, len(badges))
	for _, b := range badges {
		entries = append(entries, map[string]any{"displayName": b, "id": b})
	}
	f.set(user, client.KindProfile, fakeResponse{payload: client.Payload{
		"reputation": json.Number(itoa(reputation)),
		"ranking":    json.Number(itoa(ranking)),
	}})
	f.set(user, client.KindSolved, fakeResponse{payload: client.Payload{
		"solvedProblem": json.Number(itoa(solved)),
	}})
	f.set(user, client.KindBadges, fakeResponse{payload: client.Payload{"badges": entries}})
}

func (f *fakeClient) Fetch(ctx context.Context, identity models.Identity, kind client.Kind) (client.Payload, error) {
	key := identity.String() + "/" + kind.String()
	f.count.Add(1)
	f.mu.Lock()
	f.calls = append(f.calls, key)
	resp, ok := f.responses[key]
	f.mu.Unlock()

	if !ok {
		return nil, &client.FetchError{Class: client.ProtocolFailure, Kind: kind, Identity: identity, StatusCode: 404, Err: errNotFound}
	}
	if resp.panics {
		panic("fake client exploded")
	}
	if resp.delay > 0 {
		select {
		case <-time.After(resp.delay):
		case <-ctx.Done():
			return nil, &client.FetchError{Class: client.TransportFailure, Kind: kind, Identity: identity, Err: ctx.Err()}
		}
	}
	return resp.payload, resp.err
}

func (f *fakeClient) callCount() int {
	return int(f.count.Load())
}

func timeoutErr(identity models.Identity, kind client.Kind) error {
	return &client.FetchError{Class: client.TransportFailure, Kind: kind, Identity: identity, Err: context.DeadlineExceeded}
}

var errNotFound = errors.New("not found")

func itoa(n int) string {
	return strconv.Itoa(n)
}
