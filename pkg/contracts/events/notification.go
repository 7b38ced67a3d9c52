package events

const NotificationBetsChanged = "bets_changed"

// Notification é o payload compacto repassado via Redis Pub/Sub ao feed WebSocket
type Notification struct {
	Type     string `json:"type"` // "bets_changed"
	Action   Action `json:"action"`
	BetID    int64  `json:"betId"`
	TsUnixMs int64  `json:"tsUnixMs"`
}

// NotificationFor deriva a notificação de um evento de alteração
func NotificationFor(e BetChanged) Notification {
	return Notification{Type: NotificationBetsChanged, Action: e.Action, BetID: e.BetID, TsUnixMs: e.TsUnixMs}
}
