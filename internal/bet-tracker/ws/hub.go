package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/bet-tracker/pkg/contracts/events"
)

// ClientMsg representa uma mensagem recebida do cliente WebSocket (só "ping")
type ClientMsg struct {
	Type string `json:"type"`
}

// writeWait limita quanto um cliente lento pode segurar o Broadcast
const writeWait = 2 * time.Second

// client serializa escritas: gorilla aceita um único writer concorrente
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// Hub mantém as conexões do feed de alterações de apostas.
// Todo cliente conectado recebe todas as notificações.
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	clients  map[*client]struct{}
}

// NewHub cria o Hub com política customizada de origem (CORS)
func NewHub(log *zap.Logger, allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		clients:  make(map[*client]struct{}),
	}
}

// ServeHTTP faz o upgrade e mantém o ciclo de vida da conexão; responde a pings
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &client{conn: conn}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	defer h.drop(c)

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type == "ping" {
			_ = c.write([]byte(`{"type":"pong"}`))
		}
	}
}

// Len retorna o número de clientes conectados
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// drop remove o cliente e fecha a conexão; o loop de leitura do ServeHTTP
// termina em seguida
func (h *Hub) drop(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	_ = c.conn.Close()
}

// Broadcast envia a notificação para todos os clientes conectados. Clientes
// cuja escrita falha (ou estoura writeWait) são desconectados.
func (h *Hub) Broadcast(n events.Notification) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	if len(clients) == 0 {
		return
	}

	b, err := json.Marshal(n)
	if err != nil {
		h.log.Error("ws notification marshal", zap.Error(err))
		return
	}
	for _, c := range clients {
		if err := c.write(b); err != nil {
			h.log.Debug("ws client dropped", zap.Error(err))
			h.drop(c)
		}
	}
}

// AllowOrigins monta o CheckOrigin do upgrader a partir da lista de CORS;
// "*" libera qualquer origem
func AllowOrigins(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}
