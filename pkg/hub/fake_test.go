package hub

import (
	"context"
	"sync"
)

// fakeClient serves canned query pages and scripted batch answers.
type fakeClient struct {
	mu      sync.Mutex
	pages   map[string]string
	gets    []string
	batches []*BatchRequest
	// respond answers the n-th batch call (0-based).
	respond func(n int, req *BatchRequest) ([]byte, error)
}

func (c *fakeClient) Get(_ context.Context, path string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets = append(c.gets, path)
	return []byte(c.pages[path]), nil
}

func (c *fakeClient) Batch(_ context.Context, req *BatchRequest) ([]byte, error) {
	c.mu.Lock()
	n := len(c.batches)
	c.batches = append(c.batches, req)
	c.mu.Unlock()
	if c.respond == nil {
		return allOK(req), nil
	}
	return c.respond(n, req)
}
