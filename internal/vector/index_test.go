package vector

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/hyperjump/kiku/internal/embedding"
	"github.com/hyperjump/kiku/internal/models"
)

func textDocs(contents ...string) []models.Document {
	docs := make([]models.Document, len(contents))
	for i, c := range contents {
		docs[i] = models.Document{Content: c, Kind: models.KindText}
	}
	return docs
}

// recordingEmbedder remembers every text it embeds.
type recordingEmbedder struct {
	embedding.Embedder
	seen []string
}

func (e *recordingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.seen = append(e.seen, text)
	return e.Embedder.Embed(ctx, text)
}

// fixedEmbedder returns the same vector for every text.
type fixedEmbedder struct{ vec []float32 }

func (e fixedEmbedder) Embed(context.Context, string) ([]float32, error) { return e.vec, nil }
func (e fixedEmbedder) Dimensions() int                                  { return 3 }
func (e fixedEmbedder) Close() error                                     { return nil }

func TestBuild_AxisSearch(t *testing.T) {
	ctx := context.Background()
	emb := embedding.NewAxisEmbedder("A", "B", "C")
	idx, err := Build(ctx, textDocs("A", "B", "C"), emb, MetricCosine)
	if err != nil {
		t.Fatal(err)
	}
	q, _ := emb.Embed(ctx, "A")
	got, err := idx.Search(q, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Content != "A" || got[0].Score != 1.0 {
		t.Errorf("Search(A, 1) = %+v, want [(A, 1.0)]", got)
	}
}

func TestBuild_EmbedsOncePerDocumentInOrder(t *testing.T) {
	rec := &recordingEmbedder{Embedder: embedding.NewMockEmbedder(8)}
	docs := textDocs("one", "two", "one")
	idx, err := Build(context.Background(), docs, rec, MetricCosine)
	if err != nil {
		t.Fatal(err)
	}
	if len(rec.seen) != 3 || rec.seen[0] != "one" || rec.seen[1] != "two" || rec.seen[2] != "one" {
		t.Errorf("embedded %v", rec.seen)
	}
	if idx.Size() != 3 || idx.Dimensions() != 8 || idx.Metric() != MetricCosine || idx.BuildID() == "" {
		t.Errorf("unexpected index accessors: size=%d dims=%d metric=%s build=%q",
			idx.Size(), idx.Dimensions(), idx.Metric(), idx.BuildID())
	}
}

func TestBuild_RejectsWrongVectorLength(t *testing.T) {
	emb := fixedEmbedder{vec: []float32{1, 0}}
	_, err := Build(context.Background(), textDocs("x"), emb, MetricCosine)
	if !errors.Is(err, models.ErrDimensionMismatch) {
		t.Errorf("err = %v, want ErrDimensionMismatch", err)
	}
}

func TestBuild_RejectsUnknownMetric(t *testing.T) {
	_, err := Build(context.Background(), textDocs("x"), embedding.NewMockEmbedder(4), Metric("manhattan"))
	if !errors.Is(err, models.ErrConfiguration) {
		t.Errorf("err = %v, want ErrConfiguration", err)
	}
}

func TestSearch_TopKOrderingAndTies(t *testing.T) {
	ctx := context.Background()
	idx, err := Build(ctx, textDocs("first", "second", "third", "fourth"), fixedEmbedder{vec: []float32{0, 1, 0}}, MetricCosine)
	if err != nil {
		t.Fatal(err)
	}
	got, err := idx.Search([]float32{0, 2, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"first", "second", "third"}
	if len(got) != len(want) {
		t.Fatalf("got %d results", len(got))
	}
	for i := range want {
		if got[i].Content != want[i] {
			t.Errorf("result %d = %q, want %q (ties by insertion order)", i, got[i].Content, want[i])
		}
	}
}

func TestSearch_NonIncreasingScores(t *testing.T) {
	ctx := context.Background()
	emb := embedding.NewMockEmbedder(16)
	idx, err := Build(ctx, textDocs("alpha", "beta", "gamma", "delta", "epsilon", "zeta"), emb, MetricCosine)
	if err != nil {
		t.Fatal(err)
	}
	q, _ := emb.Embed(ctx, "gamma")
	got, _ := idx.Search(q, 10)
	if len(got) != 6 {
		t.Fatalf("k larger than index should return all records, got %d", len(got))
	}
	if got[0].Content != "gamma" || math.Abs(got[0].Score-1) > 1e-6 {
		t.Errorf("best hit = %+v", got[0])
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("score increased at %d: %v > %v", i, got[i].Score, got[i-1].Score)
		}
	}
}

func TestSearch_NonPositiveK(t *testing.T) {
	idx, _ := Build(context.Background(), textDocs("A"), embedding.NewAxisEmbedder("A"), MetricCosine)
	for _, k := range []int{0, -1} {
		got, err := idx.Search([]float32{1}, k)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 0 {
			t.Errorf("k=%d returned %d results", k, len(got))
		}
	}
}

func TestSearch_NotReady(t *testing.T) {
	var idx *Index
	if _, err := idx.Search([]float32{1}, 1); !errors.Is(err, models.ErrIndexNotReady) {
		t.Errorf("err = %v, want ErrIndexNotReady", err)
	}
	if idx.Size() != 0 || idx.Dimensions() != 0 {
		t.Error("nil index accessors should return zero values")
	}
}

func TestSearch_QueryDimensionMismatch(t *testing.T) {
	idx, _ := Build(context.Background(), textDocs("A", "B"), embedding.NewAxisEmbedder("A", "B"), MetricCosine)
	if _, err := idx.Search([]float32{1, 0, 0}, 1); !errors.Is(err, models.ErrDimensionMismatch) {
		t.Errorf("err = %v, want ErrDimensionMismatch", err)
	}
}

func TestSearch_ConcurrentReaders(t *testing.T) {
	ctx := context.Background()
	words := []string{"vagas", "datas", "notas", "cursos"}
	emb := embedding.NewAxisEmbedder(words...)
	idx, err := Build(ctx, textDocs(words...), emb, MetricCosine)
	if err != nil {
		t.Fatal(err)
	}

	const workers = 32
	var wg sync.WaitGroup
	errs := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(want string) {
			defer wg.Done()
			q, _ := emb.Embed(ctx, want)
			for n := 0; n < 50; n++ {
				res, err := idx.Search(q, 2)
				if err != nil {
					errs <- err.Error()
					return
				}
				if len(res) != 2 || res[0].Content != want || res[0].Score != 1 {
					errs <- want + ": unexpected result"
					return
				}
			}
		}(words[i%len(words)])
	}
	wg.Wait()
	close(errs)
	for msg := range errs {
		t.Error(msg)
	}
}

func TestSearch_L2(t *testing.T) {
	emb := embedding.NewAxisEmbedder("A", "B", "C")
	idx, err := Build(context.Background(), textDocs("A", "B", "C"), emb, MetricL2)
	if err != nil {
		t.Fatal(err)
	}
	got, _ := idx.Search([]float32{0, 0, 1}, 3)
	if got[0].Content != "C" || got[0].Score != 0 {
		t.Errorf("best L2 hit = %+v, want C with score 0", got[0])
	}
	if math.Abs(got[1].Score+math.Sqrt2) > 1e-9 || got[1].Content != "A" {
		t.Errorf("second hit = %+v, want A with score -sqrt(2)", got[1])
	}
}

func TestParseMetric(t *testing.T) {
	tests := []struct {
		in      string
		want    Metric
		wantErr bool
	}{
		{"", MetricCosine, false},
		{"cosine", MetricCosine, false},
		{"l2", MetricL2, false},
		{"dot", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMetric(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseMetric(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestCosineSimilarity_ZeroVector(t *testing.T) {
	if s := CosineSimilarity([]float32{0, 0}, []float32{1, 0}); s != 0 {
		t.Errorf("cosine with zero vector = %v, want 0", s)
	}
}
