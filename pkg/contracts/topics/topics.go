package topics

const (
	// Kafka: alterações de apostas (create/update/delete)
	BetChanges = "bet_changes"

	// Redis Pub/Sub: notificações para o feed WebSocket
	BetChangesBroadcast = "bet_changes_broadcast"
)
