package sector

import (
	"math"
	"sort"
)

// 文档注释：二维 R-Tree（包围盒索引）
// 背景：分区数量在几十到几百之间，但查询频率很高；用包围盒树把候选集合从 O(n) 降到 O(log n + k)。
// 约束：节点最多 9 个条目，分裂后每侧至少 4 个；叶子全部位于同一深度；枚举顺序由实现决定，不等同于插入顺序。
type RTree[T any] struct {
	root       *rnode[T]
	size       int
	maxEntries int
	minEntries int
}

// 批量装载的输入项
type Item[T any] struct {
	Env   Envelope
	Value T
}

type rnode[T any] struct {
	env     Envelope
	leaf    bool
	height  int
	entries []rentry[T]
}

// 叶子条目携带 value，内部条目携带 child
type rentry[T any] struct {
	env   Envelope
	child *rnode[T]
	value T
}

func NewRTree[T any]() *RTree[T] {
	return &RTree[T]{maxEntries: 9, minEntries: 4}
}

func (t *RTree[T]) Len() int { return t.size }

func (n *rnode[T]) recalc() {
	e := emptyEnvelope()
	for _, c := range n.entries {
		e = e.Extend(c.env)
	}
	n.env = e
}

// 文档注释：区域查询
// 约束：fn 返回 false 时立即停止遍历。
func (t *RTree[T]) Search(env Envelope, fn func(Envelope, T) bool) {
	if t.root == nil || !t.root.env.Intersects(env) {
		return
	}
	t.search(t.root, env, fn)
}

func (t *RTree[T]) search(n *rnode[T], env Envelope, fn func(Envelope, T) bool) bool {
	for i := range n.entries {
		e := &n.entries[i]
		if !env.Intersects(e.env) {
			continue
		}
		if n.leaf {
			if !fn(e.env, e.value) {
				return false
			}
			continue
		}
		if !t.search(e.child, env, fn) {
			return false
		}
	}
	return true
}

// 文档注释：逐个插入
// 背景：沿最小扩张路径下降到叶子，超出容量时按周长/重叠最小原则分裂并向上传播。
func (t *RTree[T]) Insert(env Envelope, v T) {
	if t.root == nil {
		t.root = &rnode[T]{leaf: true, height: 1, env: emptyEnvelope()}
	}
	if sib := t.insert(t.root, rentry[T]{env: env, value: v}); sib != nil {
		old := t.root
		t.root = &rnode[T]{
			height:  old.height + 1,
			entries: []rentry[T]{{env: old.env, child: old}, {env: sib.env, child: sib}},
		}
		t.root.recalc()
	}
	t.size++
}

func (t *RTree[T]) insert(n *rnode[T], e rentry[T]) *rnode[T] {
	if n.leaf {
		n.entries = append(n.entries, e)
	} else {
		i := chooseSubtree(n, e.env)
		child := n.entries[i].child
		sib := t.insert(child, e)
		n.entries[i].env = child.env
		if sib != nil {
			n.entries = append(n.entries, rentry[T]{env: sib.env, child: sib})
		}
	}
	if len(n.entries) > t.maxEntries {
		return t.split(n)
	}
	n.recalc()
	return nil
}

func chooseSubtree[T any](n *rnode[T], env Envelope) int {
	best := 0
	minEnl, minArea := math.Inf(1), math.Inf(1)
	for i, c := range n.entries {
		area := c.env.Area()
		enl := c.env.Extend(env).Area() - area
		if enl < minEnl || (enl == minEnl && area < minArea) {
			best, minEnl, minArea = i, enl, area
		}
	}
	return best
}

func (t *RTree[T]) split(n *rnode[T]) *rnode[T] {
	m := t.minEntries
	chooseSplitAxis(n.entries, m)
	k := chooseSplitIndex(n.entries, m)
	rest := append([]rentry[T](nil), n.entries[k:]...)
	n.entries = n.entries[:k:k]
	sib := &rnode[T]{leaf: n.leaf, height: n.height, entries: rest}
	n.recalc()
	sib.recalc()
	return sib
}

// 按两轴分别排序，取分布周长之和较小的轴；结束时条目按所选轴有序
func chooseSplitAxis[T any](es []rentry[T], m int) {
	sortEntries(es, byMinX[T])
	xMargin := distMargin(es, m)
	sortEntries(es, byMinY[T])
	yMargin := distMargin(es, m)
	if xMargin < yMargin {
		sortEntries(es, byMinX[T])
	}
}

func chooseSplitIndex[T any](es []rentry[T], m int) int {
	total := len(es)
	best := total - m
	minOverlap, minArea := math.Inf(1), math.Inf(1)
	for k := m; k <= total-m; k++ {
		b1 := envelopeOfEntries(es[:k])
		b2 := envelopeOfEntries(es[k:])
		overlap := intersectionArea(b1, b2)
		area := b1.Area() + b2.Area()
		if overlap < minOverlap || (overlap == minOverlap && area < minArea) {
			best, minOverlap, minArea = k, overlap, area
		}
	}
	return best
}

func distMargin[T any](es []rentry[T], m int) float64 {
	total := len(es)
	left := envelopeOfEntries(es[:m])
	right := envelopeOfEntries(es[total-m:])
	margin := left.Margin() + right.Margin()
	for i := m; i < total-m; i++ {
		left = left.Extend(es[i].env)
		margin += left.Margin()
	}
	for i := total - m - 1; i >= m; i-- {
		right = right.Extend(es[i].env)
		margin += right.Margin()
	}
	return margin
}

func envelopeOfEntries[T any](es []rentry[T]) Envelope {
	e := emptyEnvelope()
	for _, c := range es {
		e = e.Extend(c.env)
	}
	return e
}

func byMinX[T any](a, b rentry[T]) bool {
	if a.env.MinX != b.env.MinX {
		return a.env.MinX < b.env.MinX
	}
	return a.env.MaxX < b.env.MaxX
}

func byMinY[T any](a, b rentry[T]) bool {
	if a.env.MinY != b.env.MinY {
		return a.env.MinY < b.env.MinY
	}
	return a.env.MaxY < b.env.MaxY
}

func sortEntries[T any](es []rentry[T], less func(a, b rentry[T]) bool) {
	sort.SliceStable(es, func(i, j int) bool { return less(es[i], es[j]) })
}

// 文档注释：批量装载（Sort-Tile-Recursive）
// 背景：按中心点 X 切成竖条、条内按 Y 排序后每 9 个打包成节点，逐层向上直到只剩根。
// 约束：包围盒直接取输入值，不做任何取整；树非空时退化为逐个插入。
func (t *RTree[T]) BulkLoad(items []Item[T]) {
	if len(items) == 0 {
		return
	}
	if t.root != nil {
		for _, it := range items {
			t.Insert(it.Env, it.Value)
		}
		return
	}
	level := make([]rentry[T], len(items))
	for i, it := range items {
		level[i] = rentry[T]{env: it.Env, value: it.Value}
	}
	leaf, height := true, 1
	for {
		nodes := t.pack(level, leaf, height)
		if len(nodes) == 1 {
			t.root = nodes[0]
			break
		}
		level = make([]rentry[T], len(nodes))
		for i, n := range nodes {
			level[i] = rentry[T]{env: n.env, child: n}
		}
		leaf = false
		height++
	}
	t.size = len(items)
}

func (t *RTree[T]) pack(es []rentry[T], leaf bool, height int) []*rnode[T] {
	per := t.maxEntries
	nodeCount := (len(es) + per - 1) / per
	slices := int(math.Ceil(math.Sqrt(float64(nodeCount))))
	sliceSize := slices * per

	sort.SliceStable(es, func(i, j int) bool { return es[i].env.center().X < es[j].env.center().X })
	var out []*rnode[T]
	for s := 0; s < len(es); s += sliceSize {
		slice := es[s:min(s+sliceSize, len(es))]
		sort.SliceStable(slice, func(i, j int) bool { return slice[i].env.center().Y < slice[j].env.center().Y })
		for k := 0; k < len(slice); k += per {
			n := &rnode[T]{leaf: leaf, height: height, entries: append([]rentry[T](nil), slice[k:min(k+per, len(slice))]...)}
			n.recalc()
			out = append(out, n)
		}
	}
	return out
}
