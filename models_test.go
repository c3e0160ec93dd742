package ironb2o

import "testing"

func TestPresetModels_FixedOrder(t *testing.T) {
	want := []string{
		"perplexity/sonar",
		"google/gemini-2.5-flash",
		"google/gemini-2.0-flash",
		"openai/gpt-4.1-nano",
		"togetherai/Meta-Llama-3.1-70B-Instruct-Turbo",
		"google/gemini-1.5-flash-latest",
		"anthropic/claude-3-haiku-20240307",
		"openai/gpt-4o-mini",
	}
	got := PresetModels()
	if len(got) != len(want) {
		t.Fatalf("PresetModels() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("PresetModels()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPresetModels_ReturnsCopy(t *testing.T) {
	got := PresetModels()
	got[0] = "mutated"
	if ModelIDs[0] == "mutated" {
		t.Fatalf("PresetModels() must not expose the backing slice")
	}
}

func TestDefaultModel_IsPreset(t *testing.T) {
	if !IsPresetModelID(DefaultModelID) {
		t.Fatalf("default model id %q should be preset", DefaultModelID)
	}
	if IsPresetModelID("  ") {
		t.Fatalf("blank id should not be preset")
	}
}
