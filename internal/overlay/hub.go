// 包 overlay：WebSocket 中枢，接收游戏侧遥测帧并向叠加层客户端广播切换事件
package overlay

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sectorwatch/internal/coords"
	"sectorwatch/internal/logger"
	"sectorwatch/internal/metrics"
	"sectorwatch/internal/notify"
	"sectorwatch/internal/tracker"
)

const writeWait = 2 * time.Second

var upgrader = websocket.Upgrader{
	// 叠加层运行在本机浏览器源中，不做来源限制
	CheckOrigin: func(r *http.Request) bool { return true },
}

// 入站帧：type=telemetry 携带地图 id 与位置（米），type=locale 携带语言
type frame struct {
	Type     string     `json:"type"`
	MapID    int        `json:"map_id,omitempty"`
	Position [3]float64 `json:"position,omitempty"`
	Lang     string     `json:"lang,omitempty"`
}

// 文档注释：WebSocket 中枢
// 背景：遥测只保留最新一帧，由跟踪器轮询读取；事件以 JSON 文本帧广播给全部客户端。
// 约束：写失败的客户端被关闭并移除；语言订阅回调在读协程中同步调用，回调内不得阻塞。
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool

	telMu sync.RWMutex
	last  tracker.Snapshot
	have  bool

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(lang string)
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
		subs:    make(map[int]func(string)),
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.L().Warn("ws_upgrade_error", "err", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	n := len(h.clients)
	h.mu.Unlock()
	metrics.OverlayClients.Set(float64(n))
	logger.L().Debug("ws_connected", "remote", r.RemoteAddr, "clients", n)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			logger.L().Debug("ws_disconnected", "remote", r.RemoteAddr, "err", err)
			h.drop(conn)
			return
		}
		var f frame
		if err := json.Unmarshal(msg, &f); err != nil {
			logger.L().Debug("ws_bad_frame", "err", err)
			continue
		}
		h.handle(f)
	}
}

func (h *Hub) handle(f frame) {
	switch f.Type {
	case "telemetry":
		h.telMu.Lock()
		h.last = tracker.Snapshot{MapID: f.MapID, Position: coords.Vec3{X: f.Position[0], Y: f.Position[1], Z: f.Position[2]}}
		h.have = true
		h.telMu.Unlock()
	case "locale":
		if f.Lang == "" {
			return
		}
		h.subMu.Lock()
		fns := make([]func(string), 0, len(h.subs))
		for _, fn := range h.subs {
			fns = append(fns, fn)
		}
		h.subMu.Unlock()
		for _, fn := range fns {
			fn(f.Lang)
		}
	default:
		logger.L().Debug("ws_unknown_frame", "type", f.Type)
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	n := len(h.clients)
	h.mu.Unlock()
	metrics.OverlayClients.Set(float64(n))
}

// Snapshot：最新遥测帧；尚未收到任何遥测时返回 false
func (h *Hub) Snapshot() (tracker.Snapshot, bool) {
	h.telMu.RLock()
	defer h.telMu.RUnlock()
	return h.last, h.have
}

// OnLocale：订阅语言切换，返回取消订阅函数
func (h *Hub) OnLocale(fn func(lang string)) (unsubscribe func()) {
	h.subMu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	h.subMu.Unlock()
	return func() {
		h.subMu.Lock()
		delete(h.subs, id)
		h.subMu.Unlock()
	}
}

// Notify：广播事件
func (h *Hub) Notify(ctx context.Context, ev notify.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	h.Broadcast(b)
	return nil
}

func (h *Hub) Broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
			logger.L().Debug("ws_write_error", "err", err)
			c.Close()
			delete(h.clients, c)
		}
	}
	metrics.OverlayClients.Set(float64(len(h.clients)))
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
