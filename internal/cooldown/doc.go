// Package cooldown rate-limits bot commands with TTL-bounded keys.
//
// A Store atomically claims a key for a window; while the key lives every
// further claim is refused with the time left. Keys expire on their own, so
// state never grows beyond the number of recently active users.
//
// Backends:
//   - MemoryStore: in-process, backed by go-cache with a janitor
//   - RedisStore: shared between bot instances, SET NX PX plus PTTL
//
// Gate applies the bot's policies (per-command cooldown and the sleepwell
// confirm debounce) on top of any Store.
package cooldown
