package redis

// Redis key naming conventions for berth data.
// All keys are prefixed with "berth:" to avoid collisions.

const keyPrefix = "berth:"

// ── Raw document keys ──

// rawKey returns the Hash key for a raw document: berth:raw:{container}
func rawKey(containerID string) string { return keyPrefix + "raw:" + containerID }

// ── Snapshot keys ──

// recordKey returns the Hash key for a snapshot: berth:record:{container}
func recordKey(containerID string) string { return keyPrefix + "record:" + containerID }

// recordIDsKey is the Set tracking every container with a snapshot.
const recordIDsKey = keyPrefix + "record_ids"

// ── Run keys ──

// runKey returns the key holding a run's JSON: berth:run:{id}
func runKey(id string) string { return keyPrefix + "run:" + id }

// runsKey is the Sorted Set of run ids scored by start time.
const runsKey = keyPrefix + "runs"

// containerRunsKey returns the Sorted Set of one container's run ids.
func containerRunsKey(containerID string) string { return keyPrefix + "runs:" + containerID }

// ── Query log keys ──

// queryLogKey returns the key holding a query log's JSON: berth:qlog:{id}
func queryLogKey(id string) string { return keyPrefix + "qlog:" + id }

// queryLogsKey is the Sorted Set of query log ids scored by creation time.
const queryLogsKey = keyPrefix + "qlogs"

// containerQueryLogsKey returns the Sorted Set of one container's logs.
func containerQueryLogsKey(containerID string) string { return keyPrefix + "qlogs:" + containerID }

// ── Cache keys ──

// cacheKey returns the key for a cached value: berth:cache:{key}
func cacheKey(key string) string { return keyPrefix + "cache:" + key }
