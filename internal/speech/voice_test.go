package speech

import "testing"

func TestSelectVoice(t *testing.T) {
	tests := []struct {
		name      string
		dreams    string
		decisions string
		want      Category
	}{
		{"photography", "photography in Barcelona", "", CategoryCreative},
		{"music", "", "Quit playing Music in college", CategoryCreative},
		{"travel", "travel the world", "", CategoryAdventurous},
		{"startup is not art", "start a startup", "", CategoryProfessional},
		{"creative outranks adventurous", "paint while travelling abroad", "", CategoryCreative},
		{"default", "", "", CategoryThoughtful},
		{"no keyword", "be a better friend", "stayed home", CategoryThoughtful},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SelectVoice(tt.dreams, tt.decisions); got != tt.want {
				t.Errorf("SelectVoice(%q, %q) = %s, want %s", tt.dreams, tt.decisions, got, tt.want)
			}
		})
	}
}

func TestSelectVoice_Deterministic(t *testing.T) {
	first := SelectVoice("open a bakery abroad", "took the safe job")
	for i := 0; i < 50; i++ {
		if got := SelectVoice("open a bakery abroad", "took the safe job"); got != first {
			t.Fatalf("iteration %d: %s != %s", i, got, first)
		}
	}
}

func TestVoiceSet_Voice(t *testing.T) {
	vs := VoiceSet{Creative: "c", Adventurous: "a", Professional: "p", Thoughtful: "t"}
	if got := vs.Voice(CategoryAdventurous); got != "a" {
		t.Errorf("adventurous = %q", got)
	}
	if got := vs.VoiceFor("photography", ""); got != "c" {
		t.Errorf("VoiceFor = %q", got)
	}
	partial := VoiceSet{Thoughtful: "t"}
	if got := partial.Voice(CategoryProfessional); got != "t" {
		t.Errorf("missing voice should fall back to thoughtful, got %q", got)
	}
}
