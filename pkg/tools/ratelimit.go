package tools

import (
	"sync"
	"time"
)

// window is the sliding window over which rate limits are evaluated (spec
// §4.4: "the count of invocations in the last 60 seconds").
const window = 60 * time.Second

// bucket holds the recent request timestamps for one (user_id, tool_name)
// pair (spec §3 RateLimitBucket).
type bucket struct {
	timestamps []time.Time
}

// limiter tracks per-(user_id, tool_name) and per-user-global sliding
// windows. All mutation happens under a single mutex (spec §4.4: "updated
// under a mutex").
type limiter struct {
	mu        sync.Mutex
	perTool   map[string]*bucket // key: userID + "\x00" + toolName
	global    map[string]*bucket // key: userID
	globalCap int
	now       func() time.Time
}

func newLimiter(globalPerMinute int) *limiter {
	return &limiter{
		perTool:   make(map[string]*bucket),
		global:    make(map[string]*bucket),
		globalCap: globalPerMinute,
		now:       time.Now,
	}
}

// allow checks and, if admitted, records one request for (userID, toolName)
// against both the tool-specific limit (toolCap, 0 = unlimited) and the
// tool-independent global per-user limit (spec §4.4 step 4).
func (l *limiter) allow(userID, toolName string, toolCap int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	if toolCap > 0 {
		key := userID + "\x00" + toolName
		b := l.perTool[key]
		if b == nil {
			b = &bucket{}
			l.perTool[key] = b
		}
		b.timestamps = prune(b.timestamps, now)
		if len(b.timestamps) >= toolCap {
			return false
		}
	}

	if l.globalCap > 0 {
		gb := l.global[userID]
		if gb == nil {
			gb = &bucket{}
			l.global[userID] = gb
		}
		gb.timestamps = prune(gb.timestamps, now)
		if len(gb.timestamps) >= l.globalCap {
			return false
		}
	}

	if toolCap > 0 {
		key := userID + "\x00" + toolName
		l.perTool[key].timestamps = append(l.perTool[key].timestamps, now)
	}
	if l.globalCap > 0 {
		l.global[userID].timestamps = append(l.global[userID].timestamps, now)
	}
	return true
}

// prune drops timestamps older than window, expiring bucket entries on each
// check (spec §4.4: "buckets expire entries older than 60 s on each check").
func prune(ts []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-window)
	i := 0
	for i < len(ts) && ts[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return ts
	}
	return append([]time.Time(nil), ts[i:]...)
}
