package redis

import goredis "github.com/redis/go-redis/v9"

// Every state transition runs as a script that checks the current state
// before writing, so concurrent callers cannot both win.

// enqueueScript creates the job hash unless it exists.
//
// KEYS: job, state:pending, scheduled
// ARGV: id, command, attempts, max_retries, priority, next_run_at,
// created_at, updated_at, order_key, schedule_score
var enqueueScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1],
  'id', ARGV[1], 'command', ARGV[2], 'state', 'pending',
  'attempts', ARGV[3], 'max_retries', ARGV[4], 'priority', ARGV[5],
  'next_run_at', ARGV[6], 'created_at', ARGV[7], 'updated_at', ARGV[8],
  'order_key', ARGV[9])
redis.call('ZADD', KEYS[2], ARGV[5], ARGV[9])
redis.call('ZADD', KEYS[3], ARGV[10], ARGV[1])
return 1
`)

// promoteScript moves due scheduled jobs to ready and returns the first
// ready member, or nil.
//
// KEYS: scheduled, ready
// ARGV: now (unix micro), job key prefix
var promoteScript = goredis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
for _, id in ipairs(due) do
  redis.call('ZREM', KEYS[1], id)
  local jk = ARGV[2] .. id
  if redis.call('HGET', jk, 'state') == 'pending' then
    redis.call('ZADD', KEYS[2], redis.call('HGET', jk, 'priority'), redis.call('HGET', jk, 'order_key'))
  end
end
local first = redis.call('ZRANGE', KEYS[2], 0, 0)
if #first == 0 then
  return false
end
return first[1]
`)

// claimScript moves a pending job to processing.
//
// KEYS: job, ready, state:pending, state:processing
// ARGV: owner, updated_at
var claimScript = goredis.NewScript(`
if redis.call('HGET', KEYS[1], 'state') ~= 'pending' then
  return 0
end
local member = redis.call('HGET', KEYS[1], 'order_key')
local prio = redis.call('HGET', KEYS[1], 'priority')
redis.call('HSET', KEYS[1], 'state', 'processing', 'picked_by', ARGV[1], 'updated_at', ARGV[2])
redis.call('ZREM', KEYS[2], member)
redis.call('ZREM', KEYS[3], member)
redis.call('ZADD', KEYS[4], prio, member)
return 1
`)

// completeScript moves a processing job to completed. It returns -1 when
// the job is missing, 0 on an invalid state and 1 otherwise.
//
// KEYS: job, state:processing, state:completed
// ARGV: updated_at
var completeScript = goredis.NewScript(`
local st = redis.call('HGET', KEYS[1], 'state')
if not st then
  return -1
end
if st == 'completed' then
  return 1
end
if st ~= 'processing' then
  return 0
end
local member = redis.call('HGET', KEYS[1], 'order_key')
local prio = redis.call('HGET', KEYS[1], 'priority')
redis.call('HSET', KEYS[1], 'state', 'completed', 'updated_at', ARGV[1])
redis.call('HDEL', KEYS[1], 'picked_by')
redis.call('ZREM', KEYS[2], member)
redis.call('ZADD', KEYS[3], prio, member)
return 1
`)

// failScript records a retry-policy outcome for a processing job. Return
// values match completeScript.
//
// KEYS: job, state:processing, state:pending, state:dead, scheduled
// ARGV: id, new state, attempts, last_error, updated_at, next_run_at,
// schedule_score
var failScript = goredis.NewScript(`
local st = redis.call('HGET', KEYS[1], 'state')
if not st then
  return -1
end
if st ~= 'processing' then
  return 0
end
local member = redis.call('HGET', KEYS[1], 'order_key')
local prio = redis.call('HGET', KEYS[1], 'priority')
redis.call('HSET', KEYS[1], 'state', ARGV[2], 'attempts', ARGV[3],
  'last_error', ARGV[4], 'updated_at', ARGV[5], 'next_run_at', ARGV[6])
redis.call('HDEL', KEYS[1], 'picked_by')
redis.call('ZREM', KEYS[2], member)
if ARGV[2] == 'dead' then
  redis.call('ZADD', KEYS[4], prio, member)
else
  redis.call('ZADD', KEYS[3], prio, member)
  redis.call('ZADD', KEYS[5], ARGV[7], ARGV[1])
end
return 1
`)

// requeueScript moves a dead job back to pending.
//
// KEYS: job, state:dead, state:pending, scheduled
// ARGV: id, now (RFC 3339), schedule_score
var requeueScript = goredis.NewScript(`
if redis.call('HGET', KEYS[1], 'state') ~= 'dead' then
  return 0
end
local member = redis.call('HGET', KEYS[1], 'order_key')
local prio = redis.call('HGET', KEYS[1], 'priority')
redis.call('HSET', KEYS[1], 'state', 'pending', 'attempts', '0',
  'last_error', '', 'next_run_at', ARGV[2], 'updated_at', ARGV[2])
redis.call('HDEL', KEYS[1], 'picked_by')
redis.call('ZREM', KEYS[2], member)
redis.call('ZADD', KEYS[3], prio, member)
redis.call('ZADD', KEYS[4], ARGV[3], ARGV[1])
return 1
`)
