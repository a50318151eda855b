// 包 api：HTTP 状态与调试接口（gorilla/mux）
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"sectorwatch/internal/coords"
	"sectorwatch/internal/gw2api"
	"sectorwatch/internal/logger"
	"sectorwatch/internal/metrics"
	"sectorwatch/internal/sector"
	"sectorwatch/internal/store"
	"sectorwatch/internal/tracker"
)

// Core：路由依赖的跟踪器能力
type Core interface {
	Status() tracker.Status
	Lang() string
	ResolveMap(ctx context.Context, id int) (*gw2api.Map, error)
	ResolveSector(ctx context.Context, mapID int, raw coords.Vec3) (sector.Sector, bool, error)
	Invalidate(mapID int)
	OnLocaleChanged(lang string)
}

// Visits：最近足迹查询；未启用数据库时为 nil
type Visits interface {
	Recent(ctx context.Context, limit int) ([]store.Visit, error)
}

// Purge：清理外部缓存层（Redis/镜像）中某地图的数据
type Purge func(ctx context.Context, lang string, mapID int) error

type Deps struct {
	Core    Core
	Visits  Visits
	Purgers []Purge
	WS      http.Handler
}

// 文档注释：构建路由
// 背景：业务接口挂在 base 前缀下；/metrics 与 /ws 固定在根路径，便于抓取与叠加层连接。
func NewRouter(base string, d Deps) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	if d.WS != nil {
		r.Handle("/ws", d.WS)
	}
	// 路由直接挂在根路由上：子路由在方法不匹配时返回 404 而不是 405
	prefix := strings.TrimRight("/"+strings.Trim(base, "/"), "/")
	h := &handlers{d: d}
	r.HandleFunc(prefix+"/status", h.status).Methods(http.MethodGet)
	r.HandleFunc(prefix+"/maps/{id:[0-9]+}", h.getMap).Methods(http.MethodGet)
	r.HandleFunc(prefix+"/maps/{id:[0-9]+}/sector", h.getSector).Methods(http.MethodGet)
	r.HandleFunc(prefix+"/maps/{id:[0-9]+}/cache", h.dropCache).Methods(http.MethodDelete)
	r.HandleFunc(prefix+"/locale", h.putLocale).Methods(http.MethodPut)
	r.HandleFunc(prefix+"/visits", h.visits).Methods(http.MethodGet)
	return r
}

type handlers struct{ d Deps }

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func mapID(r *http.Request) int {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	return id
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.d.Core.Status())
}

func (h *handlers) getMap(w http.ResponseWriter, r *http.Request) {
	id := mapID(r)
	m, err := h.d.Core.ResolveMap(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "map not found")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *handlers) getSector(w http.ResponseWriter, r *http.Request) {
	id := mapID(r)
	var pos [3]float64
	for i, k := range []string{"x", "y", "z"} {
		s := r.URL.Query().Get(k)
		if s == "" {
			continue
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad "+k)
			return
		}
		pos[i] = f
	}
	raw := coords.Vec3{X: pos[0], Y: pos[1], Z: pos[2]}
	ctx := r.Context()
	m, err := h.d.Core.ResolveMap(ctx, id)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if m == nil {
		writeError(w, http.StatusNotFound, "map not found")
		return
	}
	s, ok, err := h.d.Core.ResolveSector(ctx, id, raw)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	p := tracker.ContinentPoint(m, raw)
	res := sectorResult{MapID: id, Point: [2]float64{p.X, p.Y}, Found: ok}
	if ok {
		res.Sector = viewOf(s)
		res.Display = tracker.DisplayName(s.Name)
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) dropCache(w http.ResponseWriter, r *http.Request) {
	id := mapID(r)
	h.d.Core.Invalidate(id)
	lang := h.d.Core.Lang()
	for _, p := range h.d.Purgers {
		if err := p(r.Context(), lang, id); err != nil {
			logger.L().Warn("cache_purge_error", "map", id, "err", err)
		}
	}
	logger.L().Info("cache_invalidated", "map", id, "lang", lang)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) putLocale(w http.ResponseWriter, r *http.Request) {
	var req localeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Lang) == "" {
		writeError(w, http.StatusBadRequest, "lang required")
		return
	}
	h.d.Core.OnLocaleChanged(strings.TrimSpace(req.Lang))
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) visits(w http.ResponseWriter, r *http.Request) {
	if h.d.Visits == nil {
		writeError(w, http.StatusNotFound, "journal disabled")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	vs, err := h.d.Visits.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if vs == nil {
		vs = []store.Visit{}
	}
	writeJSON(w, http.StatusOK, vs)
}
