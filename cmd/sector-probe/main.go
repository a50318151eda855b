// 命令行工具：一次性解析某地图元数据与给定遥测位置所在区域，输出 JSON
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"sectorwatch/internal/config"
	"sectorwatch/internal/coords"
	"sectorwatch/internal/gw2api"
	"sectorwatch/internal/logger"
	"sectorwatch/internal/notify"
	"sectorwatch/internal/tracker"
)

type probeResult struct {
	MapID      int        `json:"map_id"`
	MapName    string     `json:"map_name"`
	RegionName string     `json:"region_name"`
	Lang       string     `json:"lang"`
	Position   [3]float64 `json:"position"`
	Point      [2]float64 `json:"continent_point"`
	Found      bool       `json:"found"`
	SectorID   int        `json:"sector_id,omitempty"`
	SectorName string     `json:"sector_name,omitempty"`
	Display    string     `json:"display,omitempty"`
}

func main() {
	cfg := config.Load()
	l := logger.Setup()

	mapID := flag.Int("map", 0, "map id")
	x := flag.Float64("x", 0, "telemetry x (meters)")
	y := flag.Float64("y", 0, "telemetry y (meters, height)")
	z := flag.Float64("z", 0, "telemetry z (meters)")
	lang := flag.String("lang", cfg.Lang, "api language")
	attempts := flag.Int("attempts", 1, "total attempts per remote call")
	flag.Parse()
	if *mapID <= 0 {
		fmt.Fprintln(os.Stderr, "usage: sector-probe -map <id> -x <m> -y <m> -z <m> [-lang en]")
		os.Exit(2)
	}

	src := gw2api.WithRetry(gw2api.NewClient(cfg.APIBase, &http.Client{Timeout: cfg.APITimeout}), *attempts, 2*time.Second)
	opts := cfg.TrackerOptions()
	opts.Lang = *lang
	opts.MapNotify, opts.SectorNotify = false, false
	tr := tracker.New(src, notify.LogNotifier{}, opts)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	m, err := tr.ResolveMap(ctx, *mapID)
	if err != nil {
		l.Error("probe_map_error", "map", *mapID, "err", err)
		os.Exit(1)
	}
	if m == nil {
		l.Error("probe_map_not_found", "map", *mapID)
		os.Exit(1)
	}
	raw := coords.Vec3{X: *x, Y: *y, Z: *z}
	s, ok, err := tr.ResolveSector(ctx, *mapID, raw)
	if err != nil {
		l.Error("probe_sector_error", "map", *mapID, "err", err)
		os.Exit(1)
	}
	p := tracker.ContinentPoint(m, raw)
	res := probeResult{
		MapID: m.ID, MapName: m.Name, RegionName: m.RegionName, Lang: *lang,
		Position: [3]float64{*x, *y, *z}, Point: [2]float64{p.X, p.Y}, Found: ok,
	}
	if ok {
		res.SectorID, res.SectorName, res.Display = s.ID, s.Name, tracker.DisplayName(s.Name)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(res)
}
