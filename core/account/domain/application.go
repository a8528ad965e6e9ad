package domain

import (
	"strings"

	"datingapp/modules/clock"
)

type Option func(*Application)

func WithClock(c clock.Clock) Option {
	return func(a *Application) { a.clock = c }
}

// WithBootstrapAdmins grants the admin and moderator roles to the listed
// usernames when they register.
func WithBootstrapAdmins(usernames ...string) Option {
	return func(a *Application) {
		for _, u := range usernames {
			if u = strings.ToLower(strings.TrimSpace(u)); u != "" {
				a.admins[u] = struct{}{}
			}
		}
	}
}

func NewApp(store AccountStore, graph GraphStore, hasher PasswordHasher, tokens TokenIssuer, opts ...Option) *Application {
	app := &Application{
		store:  store,
		graph:  graph,
		hasher: hasher,
		tokens: tokens,
		clock:  clock.RealClockProvider(),
		admins: map[string]struct{}{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	return app
}
