package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/budget"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain"
)

// consumeScript checks and spends in one server-side step so concurrent
// consumers cannot overspend. The window TTL is set on first spend only.
var consumeScript = redis.NewScript(`
local eps = tonumber(ARGV[1])
local cap = tonumber(ARGV[2])
local used = tonumber(redis.call('GET', KEYS[1]) or '0')
if used + eps > cap + 1e-9 then
  return {0, tostring(cap - used)}
end
local new = tonumber(redis.call('INCRBYFLOAT', KEYS[1], ARGV[1]))
if redis.call('PTTL', KEYS[1]) < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return {1, tostring(cap - new)}
`)

const keyPrefix = "budget:"

// Store is a Redis-backed budget ledger. Spend lives under budget:<principal>
// with the window enforced by key expiry.
type Store struct {
	client *redis.Client
	limits budget.Limits
}

// New creates a Redis ledger with the given limits.
func New(client *redis.Client, limits budget.Limits) *Store {
	return &Store{client: client, limits: limits}
}

// Consume spends eps from the principal's window if it fits. Transport
// errors surface to the caller, which treats them as denials.
func (s *Store) Consume(ctx context.Context, principal domain.PrincipalID, eps float64) (budget.Grant, error) {
	if principal.IsZero() {
		return budget.Grant{}, fmt.Errorf("budget: empty principal")
	}
	if eps < 0 {
		return budget.Grant{}, fmt.Errorf("budget: negative epsilon %v", eps)
	}

	res, err := consumeScript.Run(ctx, s.client,
		[]string{keyPrefix + principal.String()},
		eps, s.limits.Cap, s.limits.Window.Milliseconds(),
	).Slice()
	if err != nil {
		return budget.Grant{}, fmt.Errorf("budget: redis consume: %w", err)
	}
	if len(res) != 2 {
		return budget.Grant{}, fmt.Errorf("budget: redis consume: unexpected reply %v", res)
	}

	grantedFlag, ok := res[0].(int64)
	if !ok {
		return budget.Grant{}, fmt.Errorf("budget: redis consume: unexpected grant flag %T", res[0])
	}
	remainingRaw, ok := res[1].(string)
	if !ok {
		return budget.Grant{}, fmt.Errorf("budget: redis consume: unexpected remaining %T", res[1])
	}
	remaining, err := strconv.ParseFloat(remainingRaw, 64)
	if err != nil {
		return budget.Grant{}, fmt.Errorf("budget: redis consume: parse remaining: %w", err)
	}
	if remaining < 0 {
		remaining = 0
	}

	return budget.Grant{Granted: grantedFlag == 1, Remaining: remaining}, nil
}
