package service

import (
	"sync"
	"time"
)

// DefaultOnlineWindow 上游的在线过期窗口。1 秒意味着客户端必须以亚秒级
// 节奏发送心跳才能保持在线; 保留该行为但允许通过配置覆盖。
const DefaultOnlineWindow = time.Second

// Stats 单次心跳的聚合结果
type Stats struct {
	Online  int  // 扫描后在线人数
	Total   int  // 历史去重用户总数
	NewUser bool // 本次心跳是否首次见到该用户
}

// PresenceTracker 在线状态跟踪器
//
// 纯内存状态, 进程重启即清零。所有 map 都在同一把互斥锁下修改;
// 计数仍然是尽力而为的 (见 Heartbeat), 锁只保证 map 结构不被写坏。
type PresenceTracker struct {
	mu        sync.Mutex
	window    time.Duration
	online    map[string]time.Time // user id -> last heartbeat
	firstSeen map[string]time.Time // user id -> first heartbeat, never expires
	now       func() time.Time
}

// NewPresenceTracker 创建跟踪器; window <= 0 时使用 DefaultOnlineWindow
func NewPresenceTracker(window time.Duration) *PresenceTracker {
	if window <= 0 {
		window = DefaultOnlineWindow
	}
	return &PresenceTracker{
		window:    window,
		online:    make(map[string]time.Time),
		firstSeen: make(map[string]time.Time),
		now:       time.Now,
	}
}

// Heartbeat 处理一次客户端心跳。
//
// 首次见到的用户被记入全量集合; online 为 true 刷新 last_seen, 为 false
// 则显式下线。随后惰性扫描: 淘汰所有 last_seen 早于 now-window 的条目。
// 扫描只发生在这里, 没有后台定时器。
func (t *PresenceTracker) Heartbeat(userID string, online bool) Stats {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	isNew := false
	if _, ok := t.firstSeen[userID]; !ok {
		isNew = true
		t.firstSeen[userID] = now
	}

	if online {
		t.online[userID] = now
	} else {
		delete(t.online, userID)
	}

	expired := now.Add(-t.window)
	for uid, last := range t.online {
		if !last.After(expired) {
			delete(t.online, uid)
		}
	}

	return Stats{
		Online:  len(t.online),
		Total:   len(t.firstSeen),
		NewUser: isNew,
	}
}

// IsOnline 在线成员判定。与上游一致, 这里不触发过期扫描: 一个停止心跳的
// 用户在下一次任意 Heartbeat 之前仍会被报告为在线。
func (t *PresenceTracker) IsOnline(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.online[userID]
	return ok
}

// SetOffline 无条件下线; 幂等, 从不失败
func (t *PresenceTracker) SetOffline(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.online, userID)
}

// Counts 返回当前 (在线, 全量) 计数, 不扫描
func (t *PresenceTracker) Counts() (online, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.online), len(t.firstSeen)
}

// FirstSeen 返回用户的首次心跳时间; 进程生命周期内不过期
func (t *PresenceTracker) FirstSeen(userID string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ts, ok := t.firstSeen[userID]
	return ts, ok
}

// SetWindow 运行时调整过期窗口 (配置热更新); window <= 0 被忽略
func (t *PresenceTracker) SetWindow(window time.Duration) {
	if window <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.window = window
}

// withClock 注入时钟, 仅测试使用
func (t *PresenceTracker) withClock(now func() time.Time) *PresenceTracker {
	t.now = now
	return t
}
