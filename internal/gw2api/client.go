package gw2api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"sectorwatch/internal/logger"
	"sectorwatch/internal/metrics"
)

const DefaultBase = "https://api.guildwars2.com"

// 文档注释：远端 Web API 客户端（JSON over HTTP）
// 背景：只读、无鉴权；每次调用记录请求数、失败类型与耗时，便于排查上游抖动。
type Client struct {
	base string
	http *http.Client
}

// 文档注释：创建客户端
// 参数：base 为空时使用官方地址；hc 为空时使用 5s 超时的默认客户端。
func NewClient(base string, hc *http.Client) *Client {
	if base == "" {
		base = DefaultBase
	}
	if hc == nil {
		hc = &http.Client{Timeout: 5 * time.Second}
	}
	return &Client{base: strings.TrimRight(base, "/"), http: hc}
}

func (c *Client) Map(ctx context.Context, lang string, id int) (*Map, error) {
	var m Map
	if err := c.get(ctx, "map", "/v2/maps/"+strconv.Itoa(id), lang, nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) Sectors(ctx context.Context, lang string, q SectorQuery) ([]Sector, error) {
	path := fmt.Sprintf("/v2/continents/%d/floors/%d/regions/%d/maps/%d/sectors", q.Continent, q.Floor, q.Region, q.Map)
	var out []Sector
	if err := c.get(ctx, "sectors", path, lang, url.Values{"ids": {"all"}}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, endpoint, path, lang string, q url.Values, dst any) error {
	if q == nil {
		q = url.Values{}
	}
	if lang != "" {
		q.Set("lang", lang)
	}
	u := c.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	t0 := time.Now()
	metrics.APIRequestsTotal.WithLabelValues(endpoint).Inc()
	logger.L().Debug("gw2api_req", "endpoint", endpoint, "url", u)
	resp, err := c.http.Do(req)
	if err != nil {
		logger.L().Warn("gw2api_http_error", "endpoint", endpoint, "err", err)
		metrics.APIFailTotal.WithLabelValues(endpoint, "transport").Inc()
		return err
	}
	defer resp.Body.Close()
	dur := time.Since(t0).Milliseconds()
	metrics.APIDurationMs.WithLabelValues(endpoint).Observe(float64(dur))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		metrics.APIFailTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
		logger.L().Debug("gw2api_status", "endpoint", endpoint, "status", resp.StatusCode, "duration_ms", dur)
		return &StatusError{Code: resp.StatusCode, URL: u, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		logger.L().Error("gw2api_decode_error", "endpoint", endpoint, "err", err)
		metrics.APIFailTotal.WithLabelValues(endpoint, "decode").Inc()
		return fmt.Errorf("gw2api: decode %s: %w", endpoint, err)
	}
	logger.L().Debug("gw2api_resp", "endpoint", endpoint, "duration_ms", dur)
	return nil
}
