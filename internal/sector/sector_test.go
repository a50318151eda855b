package sector

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sectorwatch/internal/coords"
)

func square(x0, y0, x1, y1 float64) []coords.Vec2 {
	return []coords.Vec2{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}}
}

func TestContainsSquare(t *testing.T) {
	sq := square(0, 0, 10, 10)
	assert.True(t, Contains(sq, coords.Vec2{X: 5, Y: 5}))
	assert.False(t, Contains(sq, coords.Vec2{X: 15, Y: 5}))
	assert.False(t, Contains(sq, coords.Vec2{X: -1, Y: -1}))
}

func TestContainsConcave(t *testing.T) {
	// U 形：中间缺口不属于多边形
	u := []coords.Vec2{{X: 0, Y: 0}, {X: 30, Y: 0}, {X: 30, Y: 30}, {X: 20, Y: 30}, {X: 20, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 30}, {X: 0, Y: 30}}
	assert.True(t, Contains(u, coords.Vec2{X: 5, Y: 20}))
	assert.True(t, Contains(u, coords.Vec2{X: 25, Y: 20}))
	assert.False(t, Contains(u, coords.Vec2{X: 15, Y: 20}))
	assert.True(t, Contains(u, coords.Vec2{X: 15, Y: 5}))
}

func TestContainsDegenerate(t *testing.T) {
	line := []coords.Vec2{{X: 0, Y: 0}, {X: 10, Y: 10}}
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		p := coords.Vec2{X: r.Float64()*20 - 5, Y: r.Float64()*20 - 5}
		assert.False(t, Contains(line, p))
	}
	assert.False(t, Contains(nil, coords.Vec2{}))
}

func TestNewRoundsBounds(t *testing.T) {
	s := New(7, "Plains", [][2]float64{{0.4, 0.6}, {10.5, 0}, {10, 9.49}})
	require.Len(t, s.Bounds, 3)
	assert.Equal(t, coords.Vec2{X: 0, Y: 1}, s.Bounds[0])
	assert.Equal(t, coords.Vec2{X: 11, Y: 0}, s.Bounds[1])
	assert.Equal(t, coords.Vec2{X: 10, Y: 9}, s.Bounds[2])
	assert.Equal(t, Envelope{MinX: 0, MinY: 0, MaxX: 11, MaxY: 9}, s.Envelope())
}

func TestMergeFirstWins(t *testing.T) {
	f1 := []Sector{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}
	f2 := []Sector{{ID: 2, Name: "b-floor2"}, {ID: 3, Name: "c"}}
	got := Merge(f1, nil, f2)
	require.Len(t, got, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, "b", got[1].Name)
}

func TestRTreeSearchMatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	var items []Item[int]
	for i := 0; i < 600; i++ {
		x, y := r.Float64()*1000, r.Float64()*1000
		items = append(items, Item[int]{Env: Envelope{MinX: x, MinY: y, MaxX: x + r.Float64()*40, MaxY: y + r.Float64()*40}, Value: i})
	}
	bulk := NewRTree[int]()
	bulk.BulkLoad(append([]Item[int](nil), items...))
	seq := NewRTree[int]()
	for _, it := range items {
		seq.Insert(it.Env, it.Value)
	}
	assert.Equal(t, len(items), bulk.Len())
	assert.Equal(t, len(items), seq.Len())

	collect := func(tr *RTree[int], q Envelope) []int {
		var out []int
		tr.Search(q, func(_ Envelope, v int) bool { out = append(out, v); return true })
		sort.Ints(out)
		return out
	}
	for i := 0; i < 200; i++ {
		x, y := r.Float64()*1000, r.Float64()*1000
		q := Envelope{MinX: x, MinY: y, MaxX: x + r.Float64()*100, MaxY: y + r.Float64()*100}
		var want []int
		for _, it := range items {
			if q.Intersects(it.Env) {
				want = append(want, it.Value)
			}
		}
		assert.Equal(t, want, collect(bulk, q))
		assert.Equal(t, want, collect(seq, q))
	}
}

func TestRTreeSearchStops(t *testing.T) {
	tr := NewRTree[int]()
	for i := 0; i < 50; i++ {
		tr.Insert(Envelope{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10}, i)
	}
	calls := 0
	tr.Search(PointEnvelope(coords.Vec2{X: 5, Y: 5}), func(Envelope, int) bool { calls++; return false })
	assert.Equal(t, 1, calls)
}

func TestRTreeEmpty(t *testing.T) {
	tr := NewRTree[string]()
	tr.BulkLoad(nil)
	called := false
	tr.Search(Envelope{MaxX: 1, MaxY: 1}, func(Envelope, string) bool { called = true; return true })
	assert.False(t, called)
	assert.Equal(t, 0, tr.Len())
}

// 每个网格单元内放一个随机凸多边形，保证互不重叠
func randomSectors(r *rand.Rand, cols, rows int, cell float64) []Sector {
	var out []Sector
	id := 100
	for cx := 0; cx < cols; cx++ {
		for cy := 0; cy < rows; cy++ {
			if r.Intn(5) == 0 {
				continue
			}
			center := coords.Vec2{X: float64(cx)*cell + cell/2, Y: float64(cy)*cell + cell/2}
			radius := cell/4 + r.Float64()*cell/5
			sides := 3 + r.Intn(6)
			phase := r.Float64() * math.Pi
			var bounds [][2]float64
			for k := 0; k < sides; k++ {
				a := phase + 2*math.Pi*float64(k)/float64(sides)
				bounds = append(bounds, [2]float64{center.X + radius*math.Cos(a), center.Y + radius*math.Sin(a)})
			}
			out = append(out, New(id, "", bounds))
			id++
		}
	}
	return out
}

func bruteForce(sectors []Sector, p coords.Vec2) (Sector, bool) {
	for _, s := range sectors {
		if s.Contains(p) {
			return s, true
		}
	}
	return Sector{}, false
}

func TestIndexMatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewSource(2024))
	sectors := randomSectors(r, 14, 12, 100)
	require.Greater(t, len(sectors), 50)

	for name, idx := range map[string]*Index{
		"bulk":       Build(sectors),
		"sequential": Build(sectors, Sequential()),
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, len(sectors), idx.Len())
			hits := 0
			for i := 0; i < 5000; i++ {
				p := coords.Vec2{X: r.Float64() * 1400, Y: r.Float64() * 1200}
				want, wantOK := bruteForce(sectors, p)
				got, ok := idx.Query(p)
				require.Equal(t, wantOK, ok, "point %v", p)
				if ok {
					hits++
					assert.Equal(t, want.ID, got.ID, "point %v", p)
				}
			}
			assert.Greater(t, hits, 0)
		})
	}
}

func TestIndexQueryEdgeCases(t *testing.T) {
	var nilIdx *Index
	_, ok := nilIdx.Query(coords.Vec2{})
	assert.False(t, ok)
	assert.Equal(t, 0, nilIdx.Len())

	empty := Build(nil)
	_, ok = empty.Query(coords.Vec2{X: 1, Y: 1})
	assert.False(t, ok)

	degenerate := Sector{ID: 1, Bounds: []coords.Vec2{{X: 0, Y: 0}, {X: 10, Y: 10}}}
	plains := Sector{ID: 2, Name: "Plains", Bounds: square(0, 0, 50, 50)}
	idx := Build([]Sector{degenerate, plains})
	assert.Equal(t, 2, idx.Len())
	got, ok := idx.Query(coords.Vec2{X: 5, Y: 5})
	require.True(t, ok)
	assert.Equal(t, 2, got.ID)
	_, ok = idx.Query(coords.Vec2{X: 60, Y: 5})
	assert.False(t, ok)
	assert.Equal(t, []int{1, 2}, []int{idx.Sectors()[0].ID, idx.Sectors()[1].ID})
}

func TestIndexOverlapFirstWins(t *testing.T) {
	var sectors []Sector
	for i := 0; i < 40; i++ {
		sectors = append(sectors, Sector{ID: 100 + i, Bounds: square(float64(i), 0, float64(i)+50, 50)})
	}
	for _, idx := range []*Index{Build(sectors), Build(sectors, Sequential())} {
		got, ok := idx.Query(coords.Vec2{X: 45, Y: 25})
		require.True(t, ok)
		assert.Equal(t, 100, got.ID)
		got, ok = idx.Query(coords.Vec2{X: 70, Y: 25})
		require.True(t, ok)
		assert.Equal(t, 121, got.ID)
	}
}
