package headless

import (
	"context"
	"errors"

	"github.com/JakeFAU/loginwall/internal/crawler"
)

// ErrDisabled is returned by Noop when a task asks for a browser render.
var ErrDisabled = errors.New("headless fetcher not configured")

// Noop stands in for the browser fetcher when headless rendering is disabled.
type Noop struct{}

// NewNoop creates a new Noop fetcher.
func NewNoop() *Noop {
	return &Noop{}
}

// Fetch always fails with ErrDisabled.
func (Noop) Fetch(_ context.Context, _ crawler.FetchRequest) (crawler.FetchResponse, error) {
	return crawler.FetchResponse{}, ErrDisabled
}
