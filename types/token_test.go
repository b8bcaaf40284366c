package types

import "testing"

func TestTokenUsage_Add(t *testing.T) {
	t.Parallel()

	u := TokenUsage{InputTokens: 1, OutputTokens: 2}
	u.Add(TokenUsage{InputTokens: 3, OutputTokens: 4, Estimated: true})

	if u.InputTokens != 4 || u.OutputTokens != 6 {
		t.Fatalf("unexpected tokens: %+v", u)
	}
	if u.Total() != 10 {
		t.Fatalf("expected total 10, got %d", u.Total())
	}
	if !u.Estimated {
		t.Fatalf("expected estimated flag to propagate")
	}
	if (TokenUsage{}).IsZero() != true {
		t.Fatalf("expected zero usage")
	}
}
