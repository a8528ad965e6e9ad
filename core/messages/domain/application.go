package domain

import (
	"time"

	"datingapp/modules/clock"
)

type Option func(*Application)

func WithClock(c clock.Clock) Option {
	return func(a *Application) { a.clock = c }
}

// WithGroups enables thread presence. Without it nobody is ever online.
func WithGroups(g GroupTracker) Option {
	return func(a *Application) {
		if g != nil {
			a.groups = g
		}
	}
}

// WithCursorTTL bounds how long a thread cursor stays valid.
func WithCursorTTL(ttl time.Duration) Option {
	return func(a *Application) {
		if ttl > 0 {
			a.cursorTTL = ttl
		}
	}
}

func NewApp(reader MessageReadStore, writer MessageWriteStore, signer CursorSigner, opts ...Option) *Application {
	app := &Application{
		reader:    reader,
		writer:    writer,
		signer:    signer,
		groups:    noGroups{},
		clock:     clock.RealClockProvider(),
		cursorTTL: DefaultCursorTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	return app
}
