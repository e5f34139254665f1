package directory

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Defaults substituted for individually missing (or empty/zero) payload
// fields. A payload with no data object at all is a failure, not a defaulted
// success.
const (
	defaultMaxPlayers = 32
	defaultHostname   = "Unknown Server"
)

// ErrNoData means neither extraction strategy produced a payload with a
// recognizable data object.
var ErrNoData = errors.New("no data object in upstream payload")

// dataKeyAliases lists the accepted casings of the payload's data key, tried
// in order. The upstream has shipped both.
var dataKeyAliases = []string{"Data", "data"}

// challengeMarkers are title substrings of known interstitial bot-challenge
// pages. An unlisted variant degrades to a parse failure within the fetch
// deadline rather than a hang.
var challengeMarkers = []string{
	"Just a moment",
	"Cloudflare",
	"Attention Required",
}

// isChallengeTitle reports whether a page title looks like a bot interstitial.
func isChallengeTitle(title string) bool {
	for _, marker := range challengeMarkers {
		if strings.Contains(title, marker) {
			return true
		}
	}
	return false
}

// extractor pulls a candidate JSON document out of a rendered page. Ordered
// strategies, first structurally plausible match wins.
type extractor func(html, bodyText string) ([]byte, bool)

var extractors = []extractor{
	extractPreBlock,
	extractBareBody,
}

// extractPreBlock finds a preformatted text block containing JSON, the shape
// browsers render for a raw application/json response.
func extractPreBlock(html, _ string) ([]byte, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, false
	}

	var payload []byte
	doc.Find("pre").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if strings.HasPrefix(text, "{") {
			payload = []byte(text)
			return false
		}
		return true
	})

	return payload, payload != nil
}

// extractBareBody treats the full rendered body text as the document when it
// looks like a JSON object.
func extractBareBody(_, bodyText string) ([]byte, bool) {
	text := strings.TrimSpace(bodyText)
	if strings.HasPrefix(text, "{") {
		return []byte(text), true
	}
	return nil, false
}

// extractPayload runs the extraction strategies in order.
func extractPayload(html, bodyText string) ([]byte, error) {
	for _, extract := range extractors {
		if raw, ok := extract(html, bodyText); ok {
			return raw, nil
		}
	}
	return nil, ErrNoData
}

// serverData is the nested data object of the directory payload. The upstream
// sends zero and empty values interchangeably with absent keys, so an empty
// hostname and a zero capacity take the defaults just like missing ones.
// A zero client count is a real observation and is kept.
type serverData struct {
	Clients      int    `json:"clients"`
	SvMaxClients int    `json:"sv_maxclients"`
	Hostname     string `json:"hostname"`
}

// parsePayload decodes an extracted payload into a Status. Missing individual
// fields take defaults; a missing or null data object fails the attempt.
func parsePayload(raw []byte, at time.Time) (Status, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Status{}, err
	}

	var inner json.RawMessage
	for _, key := range dataKeyAliases {
		if v, ok := envelope[key]; ok && string(v) != "null" {
			inner = v
			break
		}
	}
	if inner == nil {
		return Status{}, ErrNoData
	}

	var data serverData
	if err := json.Unmarshal(inner, &data); err != nil {
		return Status{}, err
	}

	status := Status{
		Hostname:       data.Hostname,
		CurrentPlayers: data.Clients,
		MaxPlayers:     data.SvMaxClients,
		CapturedAt:     at,
	}
	if status.Hostname == "" {
		status.Hostname = defaultHostname
	}
	if status.MaxPlayers == 0 {
		status.MaxPlayers = defaultMaxPlayers
	}

	return status, nil
}
