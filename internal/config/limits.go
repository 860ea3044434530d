package config

import "time"

// Limits bounds resource usage across the pipeline and the edit
// orchestrator. Zero values are replaced with DefaultLimits at load time.
type Limits struct {
	// MaxEditFiles caps how many repository files the edit orchestrator
	// fetches and considers. Larger repositories are edited on a prefix of
	// their tree, an accepted scalability bound.
	MaxEditFiles int `yaml:"max_edit_files" validate:"required,min=1,max=200"`

	// MaxConcurrentBlobs bounds parallel blob uploads while assembling an
	// atomic edit commit.
	MaxConcurrentBlobs int `yaml:"max_concurrent_blobs" validate:"required,min=1,max=32"`

	// MaxRetries applies to generative collaborator calls only; source-host
	// and hosting calls are single-shot with their own failure semantics.
	MaxRetries int `yaml:"max_retries" validate:"min=0,max=10"`

	// RateLimit throttles generative calls.
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// DeployReadyAttempts and DeployReadyInterval bound the readiness poll
	// performed before triggering a production deployment.
	DeployReadyAttempts int           `yaml:"deploy_ready_attempts" validate:"required,min=1,max=30"`
	DeployReadyInterval time.Duration `yaml:"deploy_ready_interval"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" validate:"required,min=1"`
	BurstSize         int `yaml:"burst_size" validate:"required,min=1"`
}

func DefaultLimits() Limits {
	return Limits{
		MaxEditFiles:        30,
		MaxConcurrentBlobs:  4,
		MaxRetries:          3,
		DeployReadyAttempts: 5,
		DeployReadyInterval: time.Second,
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
			BurstSize:         10,
		},
	}
}
