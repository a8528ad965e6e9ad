package jobs

import "time"

// ActivityConfig is read with the ACTIVITY_ prefix.
type ActivityConfig struct {
	// Debounce is the window in which a member is touched at most once.
	Debounce  time.Duration `env:"DEBOUNCE" envDefault:"1m"`
	QueueSize int           `env:"QUEUE_SIZE" envDefault:"1024"`
	Workers   int           `env:"WORKERS" envDefault:"2"`
}

// PhotoPurgeConfig is read with the JOBS_ prefix.
type PhotoPurgeConfig struct {
	Interval       time.Duration `env:"PHOTO_PURGE_INTERVAL" envDefault:"1m"`
	BatchSize      int           `env:"PHOTO_PURGE_BATCH" envDefault:"50"`
	Workers        int           `env:"PHOTO_PURGE_WORKERS" envDefault:"4"`
	RatePerSecond  float64       `env:"PHOTO_PURGE_RATE" envDefault:"20"`
	MaxAttempts    int           `env:"PHOTO_PURGE_MAX_ATTEMPTS" envDefault:"5"`
	LockAtMostFor  time.Duration `env:"PHOTO_PURGE_LOCK_AT_MOST_FOR" envDefault:"5m"`
	LockAtLeastFor time.Duration `env:"PHOTO_PURGE_LOCK_AT_LEAST_FOR" envDefault:"30s"`
}
