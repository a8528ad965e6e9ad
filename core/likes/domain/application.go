package domain

import "datingapp/modules/clock"

type Option func(*Application)

func WithClock(c clock.Clock) Option {
	return func(a *Application) { a.clock = c }
}

func NewApp(reader LikesReadStore, writer LikesWriteStore, opts ...Option) *Application {
	app := &Application{reader: reader, writer: writer, clock: clock.RealClockProvider()}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	return app
}
