// Package config handles the parsing and validation of application configuration
// from command-line arguments and environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/wildwest-rp/stagecoach/internal/logger"
	"github.com/wildwest-rp/stagecoach/internal/vars"
)

// Config represents the complete application flags configuration.
type Config struct {
	Server    Server        `group:"Server Options" env-namespace:"STAGECOACH"`
	Status    Status        `group:"Server Status Options" namespace:"status" env-namespace:"STAGECOACH_STATUS"`
	Storage   Storage       `group:"Storage Options" namespace:"db" env-namespace:"STAGECOACH_DB"`
	GeoIP     GeoIP         `group:"GeoIP Options" namespace:"geoip" env-namespace:"STAGECOACH_GEOIP"`
	RateLimit RateLimit     `group:"Rate Limit Options" namespace:"rate-limit" env-namespace:"STAGECOACH_RATE_LIMIT"`
	Logger    logger.Config `group:"Logger Options" namespace:"log" env-namespace:"STAGECOACH_LOG"`

	Version bool `short:"v" long:"version" description:"Print version and build info"`
}

// Server holds web server configuration.
type Server struct {
	Address    string `short:"l" long:"address" env:"LISTEN_ADDRESS" description:"Server listen address" default:":8080"`
	AuthToken  string `short:"t" long:"auth-token" env:"AUTH_TOKEN" description:"Admin authentication token"`
	TrustProxy bool   `long:"trust-proxy" env:"TRUST_PROXY" description:"Trust X-Forwarded-For headers"`
	HSTS       bool   `long:"hsts" env:"HSTS" description:"Send Strict-Transport-Security header (enable only behind TLS)"`
}

// Status holds upstream directory scraping and presentation configuration.
type Status struct {
	ServerCode      string        `short:"c" long:"server-code" env:"SERVER_CODE" description:"Server join code on the FiveM directory" default:"g3jo4z"`
	UpstreamURL     string        `long:"upstream-url" env:"UPSTREAM_URL" description:"Upstream directory URL template (%s replaced with server code)" default:"https://servers-frontend.fivem.net/api/servers/single/%s"`
	FreshFor        time.Duration `long:"fresh-for" env:"FRESH_FOR" description:"Freshness window for a fetched status" default:"2m"`
	FetchTimeout    time.Duration `long:"fetch-timeout" env:"FETCH_TIMEOUT" description:"Hard timeout for one upstream fetch" default:"20s"`
	ChallengeGrace  time.Duration `long:"challenge-grace" env:"CHALLENGE_GRACE" description:"Pause before waiting out a bot-challenge page" default:"3s"`
	ChallengeWait   time.Duration `long:"challenge-wait" env:"CHALLENGE_WAIT" description:"Max wait for a bot-challenge page to clear" default:"10s"`
	GameType        string        `long:"game-type" env:"GAME_TYPE" description:"Game type shown in the status payload" default:"RedM"`
	MapName         string        `long:"map-name" env:"MAP_NAME" description:"Map name shown in the status payload" default:"New Austin"`
	ConnectHost     string        `long:"connect-host" env:"CONNECT_HOST" description:"Host used to build join links" default:"cfx.re/join"`
	BrowserHeadless bool          `long:"browser-headless" env:"BROWSER_HEADLESS" description:"Run the scraping browser headless" default:"true"`
}

// Storage holds database configuration.
type Storage struct {
	Path string `short:"d" long:"path" env:"PATH" description:"Path to SQLite database" default:"stagecoach.db"`
}

// GeoIP holds MaxMind GeoIP configuration.
type GeoIP struct {
	Path     string        `short:"g" long:"path" env:"PATH" description:"Path to MMDB file" default:"stagecoach.mmdb"`
	URL      string        `long:"url" env:"URL" description:"URL to download MMDB" default:"https://git.io/GeoLite2-Country.mmdb"`
	Interval time.Duration `long:"interval" env:"INTERVAL" description:"Update interval check" default:"24h"`
}

// RateLimit holds API rate limiting configuration.
type RateLimit struct {
	Count  int           `long:"count" env:"COUNT" description:"Per-IP limit: requests count" default:"30"`
	Window time.Duration `long:"window" env:"WINDOW" description:"Per-IP limit: window duration" default:"1m"`
}

// Parse reads the configuration from flags and environment variables.
// It terminates the application if the configuration is invalid or if the help flag is invoked.
func Parse() *Config {
	var cfg Config
	parser := flags.NewParser(&cfg, flags.Default)
	parser.NamespaceDelimiter = "-"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}

	if cfg.Version {
		vars.Print()
		os.Exit(0)
	}

	if cfg.Server.AuthToken == "" {
		fmt.Fprintln(os.Stderr,
			"Required flag `-t, --auth-token' or environment variable `STAGECOACH_AUTH_TOKEN` was not specified!")
		os.Exit(1)
	}

	if cfg.Status.ServerCode == "" {
		fmt.Fprintln(os.Stderr,
			"Required flag `-c, --status-server-code' or environment variable `STAGECOACH_STATUS_SERVER_CODE` was not specified!")
		os.Exit(1)
	}

	return &cfg
}
