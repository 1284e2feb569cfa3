package codec

import (
	"math/rand/v2"
	"testing"

	"github.com/hupe1980/vismatch/model"
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

func benchmarkCodecUnmarshal[T any](b *testing.B, c Codec, data []byte, dst *T) {
	b.Helper()
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))

	var v T
	b.ResetTimer()
	for b.Loop() {
		if err := c.Unmarshal(data, &v); err != nil {
			b.Fatal(err)
		}
	}
	if dst != nil {
		*dst = v
	}
}

func benchRefset(n, bpf int) model.Refset {
	r := rand.New(rand.NewPCG(1, 2))
	rs := model.Refset{
		ImageID:         7,
		Width:           640,
		Height:          480,
		BytesPerFeature: bpf,
		Points:          make([]model.FeaturePoint, n),
		Descriptors:     make([]byte, n*bpf),
	}
	for i := range rs.Points {
		rs.Points[i] = model.FeaturePoint{
			X:      r.Float32() * 640,
			Y:      r.Float32() * 480,
			Angle:  r.Float32(),
			Scale:  1,
			Maxima: r.Float32() * 1000,
		}
	}
	for i := range rs.Descriptors {
		rs.Descriptors[i] = byte(r.UintN(256))
	}
	return rs
}

func BenchmarkCodec_Marshal_Refset(b *testing.B) {
	rs := benchRefset(500, 96)

	b.Run("stdlib", func(b *testing.B) { benchmarkCodecMarshal(b, JSON{}, rs) })
	b.Run("go-json", func(b *testing.B) { benchmarkCodecMarshal(b, GoJSON{}, rs) })
}

func BenchmarkCodec_Unmarshal_Refset(b *testing.B) {
	data := MustMarshal(JSON{}, benchRefset(500, 96))

	b.Run("stdlib", func(b *testing.B) {
		var sink model.Refset
		benchmarkCodecUnmarshal(b, JSON{}, data, &sink)
		_ = sink
	})
	b.Run("go-json", func(b *testing.B) {
		var sink model.Refset
		benchmarkCodecUnmarshal(b, GoJSON{}, data, &sink)
		_ = sink
	})
}
