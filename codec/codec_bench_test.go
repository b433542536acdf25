package codec

import (
	"testing"

	"github.com/hupe1980/spatialknn/index/rtree"
	"github.com/hupe1980/spatialknn/model"
)

func benchmarkCodecMarshal(b *testing.B, c Codec, v any) {
	b.Helper()
	b.ReportAllocs()

	warm, err := c.Marshal(v)
	if err != nil {
		b.Fatal(err)
	}
	b.SetBytes(int64(len(warm)))

	var sink []byte
	b.ResetTimer()
	for b.Loop() {
		out, err := c.Marshal(v)
		if err != nil {
			b.Fatal(err)
		}
		sink = out
	}
	_ = sink
}

func benchmarkCodecUnmarshal[T any](b *testing.B, c Codec, data []byte) {
	b.Helper()
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))

	b.ResetTimer()
	for b.Loop() {
		var v T
		if err := c.Unmarshal(data, &v); err != nil {
			b.Fatal(err)
		}
	}
}

func benchLeaf() *rtree.Node[*rtree.SpatialEntry] {
	n := rtree.NewNode[*rtree.SpatialEntry](1, true, 64, 25)
	for i := range 64 {
		p := make(model.Vector, 16)
		for j := range p {
			p[j] = float64(i*16+j) / 7
		}
		e := rtree.NewLeafEntry(model.ObjectID(i), p)
		n.Add(&e)
	}
	return n
}

func BenchmarkCodec_Marshal_Leaf(b *testing.B) {
	node := benchLeaf()

	b.Run("stdlib", func(b *testing.B) { benchmarkCodecMarshal(b, JSON{}, node) })
	b.Run("go-json", func(b *testing.B) { benchmarkCodecMarshal(b, GoJSON{}, node) })
}

func BenchmarkCodec_Unmarshal_Leaf(b *testing.B) {
	data := MustMarshal(JSON{}, benchLeaf())

	b.Run("stdlib", func(b *testing.B) {
		benchmarkCodecUnmarshal[rtree.Node[*rtree.SpatialEntry]](b, JSON{}, data)
	})
	b.Run("go-json", func(b *testing.B) {
		benchmarkCodecUnmarshal[rtree.Node[*rtree.SpatialEntry]](b, GoJSON{}, data)
	})
}
