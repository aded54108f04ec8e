package flowplan

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestElementGraphBuilder(t *testing.T) {
	t.Run("duplicate element", func(t *testing.T) {
		b := NewElementGraphBuilder()
		tap := NewFileTap("in")
		assert.NoError(t, b.AddElement(tap))

		err := b.AddElement(tap)
		assert.Error(t, err)
		assert.True(t, errors.Is(err, ErrElementExists))
	})

	t.Run("unknown endpoint", func(t *testing.T) {
		b := NewElementGraphBuilder()
		in := NewFileTap("in")
		out := NewFileTap("out")
		assert.NoError(t, b.AddElement(in))

		err := b.AddScope(in, out, Scope{Name: "main"})
		assert.Error(t, err)
		assert.True(t, errors.Is(err, ErrElementNotFound))

		err = b.AddScope(out, in, Scope{Name: "main"})
		assert.Error(t, err)
		assert.True(t, errors.Is(err, ErrElementNotFound))
	})

	t.Run("cycle rejected", func(t *testing.T) {
		b := NewElementGraphBuilder()
		s1 := &Stage{Name: "first"}
		s2 := &Stage{Name: "second"}
		assert.NoError(t, b.Connect(Scope{Name: "main"}, s1, s2))
		assert.NoError(t, b.AddScope(s2, s1, Scope{Name: "back"}))

		_, err := b.Build()
		assert.Error(t, err)
		assert.True(t, errors.Is(err, ErrGraphCyclic))
	})

	t.Run("connect registers and links", func(t *testing.T) {
		b := NewElementGraphBuilder()
		in := NewFileTap("in")
		stage := &Stage{Name: "transform"}
		out := NewFileTap("out")
		assert.NoError(t, b.Connect(Scope{Name: "main"}, in, stage, out))

		g, err := b.Build()
		assert.NoError(t, err)
		assert.Equal(t, 3, len(g.Elements()))
	})
}

func TestTapGraph(t *testing.T) {
	t.Run("chain condenses to tap edges", func(t *testing.T) {
		// a -> s1 -> b -> s2 -> c collapses to a -> b -> c.
		b := NewElementGraphBuilder()
		a := NewFileTap("a")
		mid := NewFileTap("b")
		c := NewFileTap("c")
		assert.NoError(t, b.Connect(Scope{Name: "first"}, a, &Stage{Name: "s1"}, mid))
		assert.NoError(t, b.Connect(Scope{Name: "second"}, mid, &Stage{Name: "s2"}, c))

		tg := b.MustBuild().TapGraph()
		assert.Equal(t, 3, len(tg.Taps()))
		assert.Equal(t, []Tap{mid}, tg.Successors(a))
		assert.Equal(t, []Tap{c}, tg.Successors(mid))
		assert.Equal(t, 0, len(tg.Successors(c)))
		assert.Equal(t, 0, tg.InDegree(a))
		assert.Equal(t, 1, tg.InDegree(mid))
		assert.Equal(t, 1, tg.InDegree(c))
		assert.Equal(t, 2, tg.NumJobs())
	})

	t.Run("fan out", func(t *testing.T) {
		b := NewElementGraphBuilder()
		a := NewFileTap("a")
		left := NewFileTap("left")
		right := NewFileTap("right")
		assert.NoError(t, b.Connect(Scope{Name: "left"}, a, &Stage{Name: "l"}, left))
		assert.NoError(t, b.Connect(Scope{Name: "right"}, a, &Stage{Name: "r"}, right))

		tg := b.MustBuild().TapGraph()
		assert.Equal(t, []Tap{left, right}, tg.Successors(a))
		assert.Equal(t, 2, tg.NumJobs())
	})

	t.Run("parallel branches collapse to one edge", func(t *testing.T) {
		b := NewElementGraphBuilder()
		a := NewFileTap("a")
		out := NewFileTap("out")
		assert.NoError(t, b.Connect(Scope{Name: "lhs"}, a, &Stage{Name: "l"}, out))
		assert.NoError(t, b.Connect(Scope{Name: "rhs"}, a, &Stage{Name: "r"}, out))

		tg := b.MustBuild().TapGraph()
		assert.Equal(t, []Tap{out}, tg.Successors(a))
		assert.Equal(t, 1, tg.InDegree(out))
		assert.Equal(t, 1, tg.NumJobs())
	})

	t.Run("topological order respects tap dependencies", func(t *testing.T) {
		// Diamond: a feeds left and right, both feed out.
		b := NewElementGraphBuilder()
		a := NewFileTap("a")
		left := NewFileTap("left")
		right := NewFileTap("right")
		out := NewFileTap("out")
		assert.NoError(t, b.Connect(Scope{Name: "l"}, a, &Stage{Name: "sl"}, left))
		assert.NoError(t, b.Connect(Scope{Name: "r"}, a, &Stage{Name: "sr"}, right))
		assert.NoError(t, b.Connect(Scope{Name: "lo"}, left, &Stage{Name: "ml"}, out))
		assert.NoError(t, b.Connect(Scope{Name: "ro"}, right, &Stage{Name: "mr"}, out))

		order := b.MustBuild().TapGraph().TopoOrder()
		pos := make(map[Tap]int)
		for i, tap := range order {
			pos[tap] = i
		}
		assert.Equal(t, 4, len(order))
		assert.True(t, pos[a] < pos[left])
		assert.True(t, pos[a] < pos[right])
		assert.True(t, pos[left] < pos[out])
		assert.True(t, pos[right] < pos[out])
	})
}

func TestAllShortestPaths(t *testing.T) {
	t.Run("single chain", func(t *testing.T) {
		b := NewElementGraphBuilder()
		in := NewFileTap("in")
		stage := &Stage{Name: "transform"}
		out := NewFileTap("out")
		assert.NoError(t, b.Connect(Scope{Name: "main"}, in, stage, out))

		paths := b.MustBuild().AllShortestPaths(in, out)
		assert.Equal(t, 1, len(paths))
		assert.Equal(t, []Element{in, stage, out}, paths[0].Vertices)
		assert.Equal(t, []Scope{{Name: "main"}, {Name: "main"}}, paths[0].Scopes)
	})

	t.Run("two equal length branches", func(t *testing.T) {
		b := NewElementGraphBuilder()
		in := NewFileTap("in")
		lhs := &Stage{Name: "lhs"}
		rhs := &Stage{Name: "rhs"}
		out := NewFileTap("out")
		assert.NoError(t, b.Connect(Scope{Name: "lhs"}, in, lhs, out))
		assert.NoError(t, b.Connect(Scope{Name: "rhs"}, in, rhs, out))

		paths := b.MustBuild().AllShortestPaths(in, out)
		assert.Equal(t, 2, len(paths))
	})

	t.Run("longer branch excluded", func(t *testing.T) {
		b := NewElementGraphBuilder()
		in := NewFileTap("in")
		short := &Stage{Name: "short"}
		long1 := &Stage{Name: "long1"}
		long2 := &Stage{Name: "long2"}
		out := NewFileTap("out")
		assert.NoError(t, b.Connect(Scope{Name: "short"}, in, short, out))
		assert.NoError(t, b.Connect(Scope{Name: "long"}, in, long1, long2, out))

		paths := b.MustBuild().AllShortestPaths(in, out)
		assert.Equal(t, 1, len(paths))
		assert.Equal(t, []Element{in, short, out}, paths[0].Vertices)
	})

	t.Run("unreachable", func(t *testing.T) {
		b := NewElementGraphBuilder()
		in := NewFileTap("in")
		out := NewFileTap("out")
		assert.NoError(t, b.AddElement(in))
		assert.NoError(t, b.AddElement(out))

		paths := b.MustBuild().AllShortestPaths(out, in)
		assert.Equal(t, 0, len(paths))
	})
}
