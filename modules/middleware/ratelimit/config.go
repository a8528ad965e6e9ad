package ratelimit

import (
	"time"
)

type KeyStrategyId string

const (
	RemoteIpKeyStrategy KeyStrategyId = "remote_ip"
	// SubjectKeyStrategy keys on the bearer token's subject and falls back to
	// the remote IP for anonymous requests.
	SubjectKeyStrategy KeyStrategyId = "subject"
)

type (
	// RestHTTPConfig defaults to one catch-all policy of 300 requests per
	// minute per subject, so the server is limited out of the box.
	RestHTTPConfig struct {
		Enabled             bool         `env:"ENABLED" envDefault:"true"`
		KeyPrefix           string       `env:"KEY_PREFIX" envDefault:"datingapp:rl"`
		Routes              []Route      `envPrefix:"ROUTE_"`
		DefaultPolicy       EndpointRule `envPrefix:"DEFAULT_"`
		AllowIfNoMatch      bool         `env:"ALLOW_IF_NO_MATCH" envDefault:"true"`
		AllowIfNoIdentifier bool         `env:"ALLOW_IF_NO_ID"`
	}

	// Pattern is the ServeMux pattern the route was registered with,
	// e.g. "POST /api/account/login".
	Route struct {
		Pattern       string         `env:"PATTERN"`
		EndpointRules []EndpointRule `envPrefix:"POLICY_"`
	}

	EndpointRule struct {
		Method      string        `env:"METHOD"`
		Limit       int64         `env:"LIMIT" envDefault:"300"`
		Window      time.Duration `env:"WINDOW" envDefault:"1m"`
		KeyStrategy KeyStrategyId `env:"KEY_STRATEGY" envDefault:"subject"`
	}
)
