package sector

import (
	"sectorwatch/internal/coords"
	"sectorwatch/internal/logger"
)

// 文档注释：单张地图的分区索引
// 背景：R-Tree 做包围盒粗筛，PNPOLY 做精确判定；构建后只读，重建即创建新实例。
// 约束：分区几何重叠时返回任意一个命中者（由树的枚举顺序决定）。
type Index struct {
	tree    *RTree[int]
	sectors []Sector
}

type buildOptions struct {
	sequential bool
}

type BuildOption func(*buildOptions)

// 逐个插入构建，替代批量装载
func Sequential() BuildOption {
	return func(o *buildOptions) { o.sequential = true }
}

// 文档注释：构建分区索引
// 背景：默认批量装载；Sequential 选项保留逐个插入路径，两者的命中结果由测试保证一致。
// 约束：少于 3 个点的分区不进入树，仍保留在 Sectors() 中。
func Build(sectors []Sector, opts ...BuildOption) *Index {
	var o buildOptions
	for _, fn := range opts {
		fn(&o)
	}
	idx := &Index{tree: NewRTree[int](), sectors: append([]Sector(nil), sectors...)}
	items := make([]Item[int], 0, len(idx.sectors))
	for i, s := range idx.sectors {
		if len(s.Bounds) < 3 {
			continue
		}
		items = append(items, Item[int]{Env: s.Envelope(), Value: i})
	}
	if o.sequential {
		for _, it := range items {
			idx.tree.Insert(it.Env, it.Value)
		}
	} else {
		idx.tree.BulkLoad(items)
	}
	logger.L().Debug("sector_index_built", "sectors", len(idx.sectors), "indexed", idx.tree.Len(), "sequential", o.sequential)
	return idx
}

// 文档注释：点查询
// 返回：包含该点的分区与命中标记；候选为空或均未通过精确判定时返回 false。
// 约束：多个分区重叠时取构建顺序中最靠前者，与树的形状无关。
func (x *Index) Query(p coords.Vec2) (Sector, bool) {
	if x == nil || x.tree == nil {
		return Sector{}, false
	}
	best := -1
	x.tree.Search(PointEnvelope(p), func(_ Envelope, i int) bool {
		if (best < 0 || i < best) && x.sectors[i].Contains(p) {
			best = i
		}
		return true
	})
	if best < 0 {
		return Sector{}, false
	}
	return x.sectors[best], true
}

func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.sectors)
}

// 构建时的分区列表（保持输入顺序）
func (x *Index) Sectors() []Sector {
	if x == nil {
		return nil
	}
	return append([]Sector(nil), x.sectors...)
}
