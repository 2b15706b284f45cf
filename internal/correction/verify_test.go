package correction

import "testing"

func TestVerifyEditsExactSubstring(t *testing.T) {
	edits := []Edit{{Original: "She go", Corrected: "She goes", Explanation: "agreement"}}
	got := verifyEdits("She go to school every day.", edits)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
}

func TestVerifyEditsCaseInsensitive(t *testing.T) {
	edits := []Edit{{Original: "she GO", Corrected: "she goes", Explanation: "agreement"}}
	got := verifyEdits("She go to school.", edits)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1 for case-insensitive location", len(got))
	}
}

func TestVerifyEditsFuzzyWindow(t *testing.T) {
	// Minor punctuation drift between the reported phrase and the input
	// should still locate.
	edits := []Edit{{Original: "dont have", Corrected: "do not have", Explanation: "contraction"}}
	got := verifyEdits("I don't have time today.", edits)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1 for near-match window", len(got))
	}
}

func TestVerifyEditsDropsHallucination(t *testing.T) {
	edits := []Edit{
		{Original: "She go", Corrected: "She goes", Explanation: "agreement"},
		{Original: "the weather was terrible", Corrected: "the weather is terrible", Explanation: "invented"},
	}
	got := verifyEdits("She go to school.", edits)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1 after dropping the invented edit", len(got))
	}
	if got[0].Original != "She go" {
		t.Fatalf("kept %q, want the grounded edit", got[0].Original)
	}
}

func TestVerifyEditsPhraseLongerThanInput(t *testing.T) {
	edits := []Edit{{Original: "a phrase far longer than the whole input text", Corrected: "x", Explanation: "y"}}
	got := verifyEdits("Short.", edits)
	if len(got) != 0 {
		t.Fatalf("len = %d, want 0", len(got))
	}
}

func TestVerifyEditsEmpty(t *testing.T) {
	if got := verifyEdits("anything", nil); len(got) != 0 {
		t.Fatalf("len = %d, want 0", len(got))
	}
}
