package search

import (
	"reflect"
	"sync"
	"testing"
)

func ids(rs []Result) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}

func catalogue() []Document {
	return []Document{
		{ID: "rice", Title: "Dinorado Rice", Body: "grains milled in Mindoro"},
		{ID: "tomato", Title: "Red Tomatoes", Body: "vegetables fresh from Benguet"},
		{ID: "pepper", Title: "Jalapeño Peppers", Body: "vegetables hot"},
		{ID: "mango", Title: "Carabao Mango", Body: "fruits sweet, pairs with rice cakes"},
	}
}

func TestTopK_TitleHitsOutrankBodyHits(t *testing.T) {
	idx := NewIndex(catalogue())

	got := ids(idx.TopK("rice", 0))
	if want := []string{"rice", "mango"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("rice = %v; want %v", got, want)
	}
	if got := ids(idx.TopK("benguet vegetables", 0)); got[0] != "tomato" || len(got) != 2 {
		t.Fatalf("benguet vegetables = %v", got)
	}
}

func TestTopK_FoldsCaseAndDiacritics(t *testing.T) {
	idx := NewIndex(catalogue())
	for _, q := range []string{"jalapeno", "JALAPEÑO", "  jalapeño   peppers "} {
		if got := ids(idx.TopK(q, 1)); len(got) != 1 || got[0] != "pepper" {
			t.Errorf("%q = %v", q, got)
		}
	}
}

func TestTopK_PhraseBoostAndLimit(t *testing.T) {
	idx := NewIndex([]Document{
		{ID: "a", Title: "mango carabao", Body: ""},
		{ID: "b", Title: "carabao mango", Body: ""},
	})
	res := idx.TopK("carabao mango", 0)
	if ids(res)[0] != "b" || res[0].Score <= res[1].Score {
		t.Fatalf("phrase match not boosted: %+v", res)
	}
	if got := idx.TopK("carabao mango", 1); len(got) != 1 {
		t.Fatalf("k=1 returned %d", len(got))
	}
}

func TestTopK_TiesKeepInputOrder(t *testing.T) {
	idx := NewIndex([]Document{
		{ID: "x", Title: "Okra"},
		{ID: "y", Title: "Okra"},
		{ID: "z", Title: "Okra"},
	})
	if got := ids(idx.TopK("okra", 0)); !reflect.DeepEqual(got, []string{"x", "y", "z"}) {
		t.Fatalf("ties = %v", got)
	}
}

func TestTopK_EmptyInputs(t *testing.T) {
	if got := NewIndex(nil).TopK("rice", 0); got != nil {
		t.Fatalf("empty index = %v", got)
	}
	if got := NewIndex(catalogue()).TopK("   ", 0); got != nil {
		t.Fatalf("blank query = %v", got)
	}
	if got := NewIndex(catalogue()).TopK("durian", 0); len(got) != 0 {
		t.Fatalf("no match = %v", got)
	}
}

func TestWithKeepAll(t *testing.T) {
	idx := NewIndex(catalogue(), WithKeepAll())
	got := ids(idx.TopK("mango", 0))
	if want := []string{"mango", "rice", "tomato", "pepper"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("keep all = %v; want %v", got, want)
	}
}

func TestWithStopwordsAndTitleWeight(t *testing.T) {
	docs := []Document{
		{ID: "fresh", Title: "Fresh Fresh Fresh", Body: ""},
		{ID: "okra", Title: "Okra", Body: "fresh"},
	}
	idx := NewIndex(docs, WithStopwords(" Fresh ", ""))
	if got := ids(idx.TopK("fresh okra", 0)); !reflect.DeepEqual(got, []string{"okra"}) {
		t.Fatalf("stopwords = %v", got)
	}

	bundle := []Document{{ID: "okra", Title: "Okra Bundle"}}
	// 1/2 overlap + 0.5 phrase, plus 0.25 for the title token by default.
	if got := NewIndex(bundle).TopK("okra", 0)[0].Score; got != 1.25 {
		t.Fatalf("default score = %v", got)
	}
	if got := NewIndex(bundle, WithTitleWeight(0)).TopK("okra", 0)[0].Score; got != 1.0 {
		t.Fatalf("zero title weight score = %v", got)
	}
}

func TestTopK_ConcurrentUse(t *testing.T) {
	idx := NewIndex(catalogue())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := idx.TopK("jalapeño", 1); len(got) != 1 {
				t.Errorf("concurrent = %v", got)
			}
		}()
	}
	wg.Wait()
}
