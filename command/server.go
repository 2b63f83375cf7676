package command

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"
)

// RedisVersion is the Redis release whose command behaviour is emulated.
// It is reported by INFO and HELLO so client libraries enable matching
// features.
const RedisVersion = "7.2.0"

func cmdDBSize(_ context.Context, d *Dispatcher, _ *Session, _ [][]byte) Result {
	return Integer(d.storage.KeyCount())
}

// cmdFlushAll serves FLUSHDB and FLUSHALL with an optional ASYNC|SYNC flag
func cmdFlushAll(_ context.Context, d *Dispatcher, _ *Session, args [][]byte) Result {
	if len(args) > 1 {
		return ErrorResult(syntaxError())
	}
	if len(args) == 1 {
		mode := strings.ToUpper(string(args[0]))
		if mode != "ASYNC" && mode != "SYNC" {
			return ErrorResult(syntaxError())
		}
	}
	if err := d.storage.FlushAll(); err != nil {
		return ErrorResult(storageError(err))
	}
	return okResult
}

var infoSectionOrder = []string{"server", "clients", "memory", "stats", "keyspace"}

// cmdInfo implements INFO [section ...]
func cmdInfo(_ context.Context, d *Dispatcher, _ *Session, args [][]byte) Result {
	wanted := map[string]bool{}
	all := len(args) == 0
	for _, arg := range args {
		section := strings.ToLower(string(arg))
		switch section {
		case "all", "default", "everything":
			all = true
		default:
			wanted[section] = true
		}
	}

	sections := d.infoSections()
	var b strings.Builder
	for _, name := range infoSectionOrder {
		if !all && !wanted[name] {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\r\n")
		}
		fmt.Fprintf(&b, "# %s\r\n", strings.ToUpper(name[:1])+name[1:])
		for _, field := range sections[name] {
			fmt.Fprintf(&b, "%s:%v\r\n", field.Name, field.Value)
		}
	}
	return BulkString(b.String())
}

func (d *Dispatcher) infoSections() map[string][]InfoField {
	sections := map[string][]InfoField{}
	if d.info != nil {
		for name, fields := range d.info.InfoSections() {
			sections[name] = append(sections[name], fields...)
		}
	}

	uptime := time.Since(d.started)
	sections["server"] = append([]InfoField{
		{"redis_version", RedisVersion},
		{"redis_mode", "standalone"},
		{"os", runtime.GOOS + " " + runtime.GOARCH},
		{"arch_bits", 32 << (^uint(0) >> 63)},
		{"go_version", runtime.Version()},
		{"process_id", os.Getpid()},
		{"uptime_in_seconds", int64(uptime / time.Second)},
		{"uptime_in_days", int64(uptime / (24 * time.Hour))},
	}, sections["server"]...)

	info := d.storage.Info()
	sections["memory"] = append(sections["memory"],
		InfoField{"used_memory", info["memory_usage"]},
		InfoField{"used_memory_go", info["go_memory"]},
		InfoField{"storage_shards", info["shards"]},
	)

	if keys, ok := info["keys"].(int64); ok && keys > 0 {
		sections["keyspace"] = []InfoField{
			{"db0", fmt.Sprintf("keys=%d,expires=%v,avg_ttl=0", keys, info["expires"])},
		}
	}

	for name := range sections {
		if name == "server" {
			continue
		}
		fields := sections[name]
		sort.SliceStable(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
	}
	return sections
}
