// Package browser owns the process-wide headless Chrome session used to reach
// upstreams that refuse plain HTTP clients.
package browser

import (
	"context"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
)

// Session is a shared browser handle. The underlying Chrome process is started
// lazily on the first page request and kept warm for subsequent fetches, so
// only the first status request pays the startup cost. It is safe for
// concurrent use; every caller gets its own tab.
type Session struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	mu            sync.Mutex
	headless      bool
	started       bool
}

// NewSession prepares a browser session without launching anything.
func NewSession(headless bool) *Session {
	return &Session{headless: headless}
}

// start launches the browser process. Callers must hold s.mu.
func (s *Session) start() error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.headless),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-zygote", true),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Run with no actions forces the browser process to spawn now, so a broken
	// Chrome install fails here instead of mid-navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return err
	}

	s.allocCancel = allocCancel
	s.browserCtx = browserCtx
	s.browserCancel = browserCancel
	s.started = true

	log.Info().Bool("headless", s.headless).Msg("Browser session started")
	return nil
}

// NewPage returns a fresh tab context and its cancel func, launching the
// browser first if needed. Cancelling the returned context closes only the
// tab; the browser stays warm.
func (s *Session) NewPage() (context.Context, context.CancelFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		if err := s.start(); err != nil {
			return nil, nil, err
		}
	}

	ctx, cancel := chromedp.NewContext(s.browserCtx)
	return ctx, cancel, nil
}

// Close tears down the browser process. Tied to process shutdown, not to any
// single request.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.browserCancel()
	s.allocCancel()
	s.started = false

	log.Info().Msg("Browser session closed")
}
