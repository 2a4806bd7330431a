package throttle

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/buckles/server/internal/kv"
	"github.com/buckles/server/internal/model"
)

// ErrLocked is returned by Check while a lockout is active for either key.
// The message deliberately says nothing about whether the username exists.
var ErrLocked = errors.New("login temporarily locked, try again later")

// Scope distinguishes the two independent throttle keys of one attempt.
type Scope string

const (
	ScopeIP       Scope = "ip"
	ScopeUsername Scope = "user"
)

// Rule locks a scope for Lockout when its failure counter lands exactly on
// Attempts. Rules are evaluated in order; the first match wins.
type Rule struct {
	Scope    Scope
	Attempts int64
	Lockout  time.Duration
}

// DefaultRules returns the lockout table. IP rules come first: an IP-based
// attack is treated as higher severity than a single-account attack. The
// exact-equality match means each threshold fires once as the counter
// climbs through it, and climbing past a threshold does not re-trigger it.
func DefaultRules() []Rule {
	return []Rule{
		{Scope: ScopeIP, Attempts: 10, Lockout: 2 * time.Minute},
		{Scope: ScopeIP, Attempts: 20, Lockout: 5 * time.Minute},
		{Scope: ScopeIP, Attempts: 30, Lockout: 15 * time.Minute},
		{Scope: ScopeUsername, Attempts: 5, Lockout: 5 * time.Minute},
		{Scope: ScopeUsername, Attempts: 15, Lockout: 10 * time.Minute},
		{Scope: ScopeUsername, Attempts: 30, Lockout: 30 * time.Minute},
	}
}

// Engine tracks failed login attempts per source IP and per attempted
// username, and computes escalating lockout windows from the rule table.
type Engine struct {
	store      kv.Store
	rules      []Rule
	counterTTL time.Duration
	now        func() time.Time
}

// NewEngine creates an Engine over the given key-value store. Nil rules
// fall back to DefaultRules.
func NewEngine(store kv.Store, rules []Rule, counterTTL time.Duration) *Engine {
	if rules == nil {
		rules = DefaultRules()
	}
	if counterTTL <= 0 {
		counterTTL = time.Hour
	}
	return &Engine{store: store, rules: rules, counterTTL: counterTTL, now: time.Now}
}

// SetClock overrides the engine's clock. Test hook.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

func counterKey(scope Scope, value string) string {
	return fmt.Sprintf("throttle:%s:%s:fails", scope, value)
}

func lockKey(scope Scope, value string) string {
	return fmt.Sprintf("throttle:%s:%s:lock", scope, value)
}

// Check rejects the attempt if either the IP or the username key carries a
// lockout that has not yet elapsed. It runs before any credential work so a
// locked attempt leaks no timing signal about credential correctness.
func (e *Engine) Check(ctx context.Context, ip, username string) error {
	for _, k := range []struct {
		scope Scope
		value string
	}{{ScopeIP, ip}, {ScopeUsername, username}} {
		until, err := e.lockedUntil(ctx, k.scope, k.value)
		if err != nil {
			return err
		}
		if until != nil && e.now().Before(*until) {
			return ErrLocked
		}
	}
	return nil
}

// RecordFailure increments both counters for a failed attempt, then walks
// the rule table. Returns the new lockout deadline, or the zero time when
// no rule matched (the "unchanged" sentinel).
func (e *Engine) RecordFailure(ctx context.Context, ip, username string) (time.Time, error) {
	ipFails, err := e.store.IncrementCounter(ctx, counterKey(ScopeIP, ip), e.counterTTL)
	if err != nil {
		return time.Time{}, fmt.Errorf("increment ip counter: %w", err)
	}
	userFails, err := e.store.IncrementCounter(ctx, counterKey(ScopeUsername, username), e.counterTTL)
	if err != nil {
		return time.Time{}, fmt.Errorf("increment username counter: %w", err)
	}

	for _, rule := range e.rules {
		fails := ipFails
		value := ip
		if rule.Scope == ScopeUsername {
			fails = userFails
			value = username
		}
		if fails != rule.Attempts {
			continue
		}
		until := e.now().Add(rule.Lockout)
		err := e.store.SetWithExpiry(ctx, lockKey(rule.Scope, value),
			strconv.FormatInt(until.Unix(), 10), rule.Lockout)
		if err != nil {
			return time.Time{}, fmt.Errorf("persist lockout: %w", err)
		}
		return until, nil
	}
	return time.Time{}, nil
}

// Reset clears both counters and any lockouts after a successful login.
func (e *Engine) Reset(ctx context.Context, ip, username string) error {
	for _, k := range []struct {
		scope Scope
		value string
	}{{ScopeIP, ip}, {ScopeUsername, username}} {
		if err := e.store.Delete(ctx, counterKey(k.scope, k.value)); err != nil {
			return fmt.Errorf("reset %s counter: %w", k.scope, err)
		}
		if err := e.store.Delete(ctx, lockKey(k.scope, k.value)); err != nil {
			return fmt.Errorf("reset %s lock: %w", k.scope, err)
		}
	}
	return nil
}

// Status returns the current throttle state for one key.
func (e *Engine) Status(ctx context.Context, scope Scope, value string) (model.ThrottleStatus, error) {
	fails, err := e.store.GetCounter(ctx, counterKey(scope, value))
	if err != nil {
		return model.ThrottleStatus{}, err
	}
	status := model.ThrottleStatus{FailedAttempts: fails}
	until, err := e.lockedUntil(ctx, scope, value)
	if err != nil {
		return model.ThrottleStatus{}, err
	}
	status.LockedUntil = until
	return status, nil
}

func (e *Engine) lockedUntil(ctx context.Context, scope Scope, value string) (*time.Time, error) {
	raw, err := e.store.Get(ctx, lockKey(scope, value))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read lock for %s: %w", scope, err)
	}
	unix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("lock for %s holds non-numeric value: %w", scope, err)
	}
	until := time.Unix(unix, 0)
	return &until, nil
}
