package eval

import "testing"

func TestParseScores(t *testing.T) {
	output := []byte(`Namespace(backend='gloo', batch_size=128)
Epoch 00000 | Step 00099 | Loss 1.2411
val accuracy: 0.512, test accuracy: 0.507
Epoch 00001 | Step 00199 | Loss 0.8719
Val accuracy: 0.617, Test accuracy: 0.612
Best val accuracy: 0.617
epoch time 301.2s
`)

	scores, err := ParseScores(output, "accuracy")
	if err != nil {
		t.Fatal(err)
	}
	if len(scores) != 2 {
		t.Fatalf("expected 2 scores, got %d (%+v)", len(scores), scores)
	}
	if scores[0].Val != 0.512 || scores[0].Test != 0.507 {
		t.Fatalf("unexpected round 0 %+v", scores[0])
	}
	if scores[1].Val != 0.617 || scores[1].Test != 0.612 {
		t.Fatalf("unexpected round 1 %+v", scores[1])
	}
	if scores[1].Round != 1 {
		t.Fatalf("unexpected round index %d", scores[1].Round)
	}
}

func TestParseScoresEmpty(t *testing.T) {
	if _, err := ParseScores([]byte("no scores here\n"), "accuracy"); err == nil {
		t.Fatal("expected error for output without scores")
	}
}

func TestParseScoresMetricMismatch(t *testing.T) {
	output := []byte("val mrr: 0.33, test mrr: 0.31\n")
	if _, err := ParseScores(output, "accuracy"); err == nil {
		t.Fatal("expected error when metric is absent")
	}
	scores, err := ParseScores(output, "mrr")
	if err != nil {
		t.Fatal(err)
	}
	if scores[0].Val != 0.33 {
		t.Fatalf("unexpected %+v", scores[0])
	}
}
