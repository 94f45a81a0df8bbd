package rate

import (
	"math"
	"sync"
	"time"
)

// Class identifies an independently configured bucket family.
type Class string

const (
	// ClassRequestIP is an exported constant or variable used by the authentication engine.
	ClassRequestIP Class = "request_ip"
	// ClassRequestEmail is an exported constant or variable used by the authentication engine.
	ClassRequestEmail Class = "request_email"
	// ClassLogoutIP is an exported constant or variable used by the authentication engine.
	ClassLogoutIP Class = "logout_ip"
)

// ClassConfig holds capacity and linear refill rate for one bucket class.
type ClassConfig struct {
	Capacity   float64
	RefillRate float64 // units added per minute
}

// Config maps each key class to its bucket parameters.
type Config map[Class]ClassConfig

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return Config{
		ClassRequestIP:    {Capacity: 10, RefillRate: 10},
		ClassRequestEmail: {Capacity: 5, RefillRate: 5},
		ClassLogoutIP:     {Capacity: 20, RefillRate: 20},
	}
}

// Decision is the outcome of a single TryConsume call. Limit, Remaining,
// RetryAfter and Reset carry everything a caller needs to build rate-limit
// response headers.
type Decision struct {
	Allowed    bool
	Class      Class
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	Reset      time.Time
}

type bucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// Limiter enforces per-key token-bucket limits across multiple key classes.
// Buckets are created lazily on first use and live for the process lifetime.
type Limiter struct {
	config  Config
	buckets sync.Map // "class:key" -> *bucket
	now     func() time.Time
}

// New creates a [Limiter] from the given class configuration. Classes absent
// from cfg fall back to [DefaultConfig] values.
func New(cfg Config) *Limiter {
	merged := DefaultConfig()
	for class, cc := range cfg {
		if cc.Capacity > 0 && cc.RefillRate > 0 {
			merged[class] = cc
		}
	}
	return &Limiter{
		config: merged,
		now:    time.Now,
	}
}

// TryConsume atomically refills the bucket for class+key from elapsed
// wall-clock time and consumes weight units if available. The returned
// [Decision] is valid for both allowed and denied outcomes.
func (l *Limiter) TryConsume(class Class, key string, weight float64) Decision {
	cc, ok := l.config[class]
	if !ok {
		// Unknown classes fail open; misconfiguration must not lock everyone out.
		return Decision{Allowed: true, Class: class}
	}
	if weight <= 0 {
		weight = 1
	}

	b := l.bucketFor(class, key, cc)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := l.now()
	elapsed := now.Sub(b.lastRefill)
	if elapsed > 0 {
		b.tokens = math.Min(cc.Capacity, b.tokens+cc.RefillRate*elapsed.Minutes())
		b.lastRefill = now
	}

	decision := Decision{
		Class: class,
		Limit: int(cc.Capacity),
	}

	if b.tokens >= weight {
		b.tokens -= weight
		decision.Allowed = true
		decision.Remaining = int(b.tokens)
		decision.Reset = now.Add(refillDuration(cc, cc.Capacity-b.tokens))
		return decision
	}

	deficit := weight - b.tokens
	decision.Remaining = int(b.tokens)
	decision.RetryAfter = refillDuration(cc, deficit)
	decision.Reset = now.Add(refillDuration(cc, cc.Capacity-b.tokens))
	return decision
}

// Reset drops every bucket. Intended for tests and administrative resets;
// callers accept that in-flight denials may flip to allows.
func (l *Limiter) Reset() {
	l.buckets.Range(func(key, _ any) bool {
		l.buckets.Delete(key)
		return true
	})
}

func (l *Limiter) bucketFor(class Class, key string, cc ClassConfig) *bucket {
	mapKey := string(class) + ":" + key
	if existing, ok := l.buckets.Load(mapKey); ok {
		return existing.(*bucket)
	}

	fresh := &bucket{
		tokens:     cc.Capacity,
		lastRefill: l.now(),
	}
	actual, _ := l.buckets.LoadOrStore(mapKey, fresh)
	return actual.(*bucket)
}

func refillDuration(cc ClassConfig, units float64) time.Duration {
	if units <= 0 || cc.RefillRate <= 0 {
		return 0
	}
	return time.Duration(units / cc.RefillRate * float64(time.Minute))
}
