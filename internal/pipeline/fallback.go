package pipeline

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/snappy-loop/shadowtwin/internal/models"
)

// Fallbacks are plausible placeholders built only from the input, so the same input always
// yields the same non-empty content.

func dreamOrDefault(in models.SimulationInput) string {
	if d := strings.TrimSpace(in.UnpursuedDreams); d != "" {
		return d
	}
	return "the road not taken"
}

func lifeOrDefault(in models.SimulationInput) string {
	if l := strings.TrimSpace(in.CurrentLifeSummary); l != "" {
		return l
	}
	return "your current path"
}

// FallbackTimeline returns four milestones around the unpursued dream.
func FallbackTimeline(in models.SimulationInput) []models.TimelineEvent {
	dream := dreamOrDefault(in)
	return []models.TimelineEvent{
		{Age: 22, Year: "Year 1", Title: "The first yes",
			Description: fmt.Sprintf("Instead of the safe option, you commit to %s and take the first small step.", dream)},
		{Age: 26, Year: "Year 5", Title: "Finding your people",
			Description: "You meet the mentors and friends who push you further than you thought you could go."},
		{Age: 31, Year: "Year 10", Title: "The breakthrough",
			Description: fmt.Sprintf("Years of practice pay off and %s stops being a dream and becomes your life.", dream)},
		{Age: 35, Year: "Year 14", Title: "Coming full circle",
			Description: "You start helping others take the leap you once hesitated over."},
	}
}

// FallbackPosts returns three feed posts tagged with words from the dream.
func FallbackPosts(in models.SimulationInput) []models.SocialPost {
	dream := dreamOrDefault(in)
	tags := dreamTags(dream)
	likes := 100 + 7*len(dream)
	return []models.SocialPost{
		{Network: models.NetworkInstagram, Caption: fmt.Sprintf("Some days I still can't believe this is real. %s, every single day.", dream),
			Tags: append([]string{"alternatelife"}, tags...), Likes: likes * 3, TimeAgo: "2h"},
		{Network: models.NetworkLinkedIn, Caption: "Ten years ago I chose the uncertain path. Grateful for every lesson it taught me.",
			Tags: []string{"career", "growth"}, Likes: likes, TimeAgo: "3d"},
		{Network: models.NetworkInstagram, Caption: "Behind every good day is a hundred ordinary ones. Still worth it.",
			Tags: append([]string{"behindthescenes"}, tags...), Likes: likes * 2, TimeAgo: "1w"},
	}
}

// FallbackComparison returns five rows contrasting the current life with the dream.
func FallbackComparison(in models.SimulationInput) []models.ComparisonRow {
	life, dream := lifeOrDefault(in), dreamOrDefault(in)
	return []models.ComparisonRow{
		{Dimension: "Career", Baseline: life, Alternate: "Built around " + dream},
		{Dimension: "Location", Baseline: "Close to where you started", Alternate: "Wherever the work takes you"},
		{Dimension: "Relationships", Baseline: "Long-standing and familiar", Alternate: "A wide circle met along the way"},
		{Dimension: "Daily routine", Baseline: "Predictable and steady", Alternate: "Irregular, full of surprises"},
		{Dimension: "Fulfilment", Baseline: "Comfortable, with a quiet what-if", Alternate: "Demanding, but unmistakably yours"},
	}
}

// dreamTags returns up to two lower-cased words of four or more letters.
func dreamTags(dream string) []string {
	var tags []string
	for _, w := range strings.FieldsFunc(strings.ToLower(dream), func(r rune) bool { return !unicode.IsLetter(r) }) {
		if len([]rune(w)) < 4 {
			continue
		}
		tags = append(tags, w)
		if len(tags) == 2 {
			break
		}
	}
	return tags
}
