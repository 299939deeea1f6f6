package auth

import "sync"

// SessionEndedNotifier はセッション終了イベントのプロセス内通知を提供する。
// 明示的なサインアウト、トークン失効、リフレッシュ失敗のいずれでも、
// 1つの終了イベントにつき各購読者へ1回だけ通知される。
type SessionEndedNotifier struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(sessionID string)
}

// NewSessionEndedNotifier はSessionEndedNotifierを生成する。
func NewSessionEndedNotifier() *SessionEndedNotifier {
	return &SessionEndedNotifier{
		subs: make(map[int]func(sessionID string)),
	}
}

// Subscribe はセッション終了通知の購読を登録し、解除関数を返す。
// 解除関数は複数回呼んでも安全。購読者は自身のライフタイム終了時に
// 必ず解除すること（解除漏れはリソースリークになる）。
func (n *SessionEndedNotifier) Subscribe(fn func(sessionID string)) (unsubscribe func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.subs[id] = fn

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

// Notify は全購読者にセッション終了を通知する。
// コールバックはロック外で呼び出す（コールバック内からのSubscribe/解除を許容するため）。
func (n *SessionEndedNotifier) Notify(sessionID string) {
	n.mu.Lock()
	fns := make([]func(string), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(sessionID)
	}
}

// SubscriberCount は現在の購読者数を返す。リーク検知のテスト用。
func (n *SessionEndedNotifier) SubscriberCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}
