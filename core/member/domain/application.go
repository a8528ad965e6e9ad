package domain

import "datingapp/modules/clock"

type Option func(*Application)

// WithCache puts c in front of member detail reads.
func WithCache(c MemberCache) Option {
	return func(a *Application) { a.cache = c }
}

func WithClock(c clock.Clock) Option {
	return func(a *Application) { a.clock = c }
}

func NewApp(reader MemberReadStore, writer MemberWriteStore, images ImageStore, opts ...Option) *Application {
	app := &Application{
		reader: reader,
		writer: writer,
		images: images,
		cache:  noCache{},
		clock:  clock.RealClockProvider(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	return app
}
