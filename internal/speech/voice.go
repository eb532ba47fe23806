package speech

import "github.com/snappy-loop/shadowtwin/internal/script"

// Category is the personality bucket a voice is chosen for
type Category string

const (
	CategoryCreative     Category = "creative"
	CategoryAdventurous  Category = "adventurous"
	CategoryProfessional Category = "professional"
	CategoryThoughtful   Category = "thoughtful"
)

// categoryKeywords is checked in order; the first category with a word starting with one of
// its keywords wins.
var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryCreative, []string{"art", "music", "paint", "photograph", "writ", "novel", "design", "film", "dance", "creative"}},
	{CategoryAdventurous, []string{"travel", "abroad", "adventure", "explore", "mountain", "ocean", "sail", "backpack", "world"}},
	{CategoryProfessional, []string{"business", "startup", "company", "career", "entrepreneur", "law", "finance", "ceo", "manager"}},
}

// SelectVoice picks a category from the user's unpursued dreams and past decisions.
// It is a pure function of its inputs; thoughtful is the default.
func SelectVoice(dreams, decisions string) Category {
	words := script.LowerWords(dreams + " " + decisions)
	for _, ck := range categoryKeywords {
		if script.HasWordPrefix(words, ck.keywords) {
			return ck.category
		}
	}
	return CategoryThoughtful
}

// VoiceSet maps each category to a vendor voice id
type VoiceSet struct {
	Creative     string
	Adventurous  string
	Professional string
	Thoughtful   string
}

// Voice returns the voice id for c, falling back to the thoughtful voice.
func (v VoiceSet) Voice(c Category) string {
	switch c {
	case CategoryCreative:
		if v.Creative != "" {
			return v.Creative
		}
	case CategoryAdventurous:
		if v.Adventurous != "" {
			return v.Adventurous
		}
	case CategoryProfessional:
		if v.Professional != "" {
			return v.Professional
		}
	}
	return v.Thoughtful
}

// VoiceFor is SelectVoice followed by Voice.
func (v VoiceSet) VoiceFor(dreams, decisions string) string {
	return v.Voice(SelectVoice(dreams, decisions))
}
