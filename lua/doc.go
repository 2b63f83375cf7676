// Package lua provides Redis-compatible Lua script execution for EVAL,
// EVALSHA and SCRIPT.
//
// Scripts run in a fresh gopher-lua state with the base, table, string and
// math libraries. redis.call and redis.pcall hand their arguments to an
// Executor, normally the command dispatcher, so a script can run any
// command a client could send except the scripting commands themselves.
//
// Values cross the boundary with the usual Redis conversion rules:
//   - integer replies become Lua numbers, Lua numbers become integers
//     (the fractional part is dropped)
//   - bulk replies become strings; a null bulk or null array becomes false
//   - status replies become {ok=...}, error replies become {err=...}
//   - Lua true becomes the integer 1, false and nil become a null bulk
//   - tables become arrays up to the first nil element
//
// Loaded scripts are kept in a bounded LRU cache keyed by SHA1.
package lua
