// Package directory fetches live server snapshots from the FiveM server
// directory. The directory sits behind Cloudflare bot defenses, so each fetch
// renders the endpoint in a real browser tab instead of a plain HTTP client.
package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"
	"github.com/wildwest-rp/stagecoach/internal/browser"
	"github.com/wildwest-rp/stagecoach/internal/config"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Status is one normalized live snapshot of the tracked server. It is never
// partially populated: a capture either yields all fields (with per-field
// defaults) or fails as a whole.
type Status struct {
	CapturedAt     time.Time
	Hostname       string
	CurrentPlayers int
	MaxPlayers     int
}

// Client performs single fetch attempts against the upstream directory.
// It holds no cache and no persisted state; each call is independent.
type Client struct {
	session        *browser.Session
	urlTemplate    string
	timeout        time.Duration
	challengeGrace time.Duration
	challengeWait  time.Duration
}

// NewClient builds a directory client on top of a shared browser session.
func NewClient(session *browser.Session, cfg config.Status) *Client {
	return &Client{
		session:        session,
		urlTemplate:    cfg.UpstreamURL,
		timeout:        cfg.FetchTimeout,
		challengeGrace: cfg.ChallengeGrace,
		challengeWait:  cfg.ChallengeWait,
	}
}

// FetchStatus retrieves and normalizes the live status of one server code.
// Every failure mode (timeout, bad HTTP status, unresolved challenge, missing
// or malformed payload) surfaces as a plain error; callers only need
// success or failure.
func (c *Client) FetchStatus(ctx context.Context, code string) (Status, error) {
	if err := ctx.Err(); err != nil {
		return Status{}, err
	}

	pageCtx, closePage, err := c.session.NewPage()
	if err != nil {
		return Status{}, fmt.Errorf("browser page: %w", err)
	}
	// The tab is released on every exit path; the browser itself stays warm.
	defer closePage()

	pageCtx, cancel := context.WithTimeout(pageCtx, c.timeout)
	defer cancel()

	url := fmt.Sprintf(c.urlTemplate, code)

	if err := chromedp.Run(pageCtx,
		network.Enable(),
		emulation.SetUserAgentOverride(userAgent),
		network.SetExtraHTTPHeaders(network.Headers{
			"Accept":          "application/json, text/plain, */*",
			"Accept-Language": "en-US,en;q=0.9",
			"Cache-Control":   "no-cache",
		}),
	); err != nil {
		return Status{}, fmt.Errorf("page setup: %w", err)
	}

	log.Debug().Str("url", url).Msg("Fetching upstream server status")

	resp, err := chromedp.RunResponse(pageCtx, chromedp.Navigate(url))
	if err != nil {
		return Status{}, fmt.Errorf("navigate: %w", err)
	}
	if resp != nil && (resp.Status < 200 || resp.Status >= 300) {
		return Status{}, fmt.Errorf("upstream returned status %d", resp.Status)
	}

	var title string
	if err := chromedp.Run(pageCtx,
		chromedp.WaitReady("body"),
		chromedp.Title(&title),
	); err != nil {
		return Status{}, fmt.Errorf("wait body: %w", err)
	}

	if isChallengeTitle(title) {
		c.waitOutChallenge(pageCtx, title)
	}

	var html, bodyText string
	if err := chromedp.Run(pageCtx,
		chromedp.OuterHTML("html", &html),
		chromedp.Text("body", &bodyText, chromedp.ByQuery),
	); err != nil {
		return Status{}, fmt.Errorf("read page: %w", err)
	}

	raw, err := extractPayload(html, bodyText)
	if err != nil {
		return Status{}, err
	}

	status, err := parsePayload(raw, time.Now())
	if err != nil {
		return Status{}, err
	}

	log.Debug().
		Str("hostname", status.Hostname).
		Int("players", status.CurrentPlayers).
		Int("max_players", status.MaxPlayers).
		Msg("Upstream status fetched")

	return status, nil
}

// waitOutChallenge gives an interstitial bot-challenge page a chance to clear.
// Best effort only: errors are ignored and the caller proceeds to extraction,
// where an unresolved challenge fails as a missing payload.
func (c *Client) waitOutChallenge(pageCtx context.Context, title string) {
	log.Debug().Str("title", title).Msg("Challenge page detected, waiting")

	_ = chromedp.Run(pageCtx, chromedp.Sleep(c.challengeGrace))

	waitCtx, cancel := context.WithTimeout(pageCtx, c.challengeWait)
	defer cancel()
	_ = chromedp.Run(waitCtx, chromedp.WaitReady("body"))
}
