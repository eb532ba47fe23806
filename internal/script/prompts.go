// Package script builds vendor prompts and spoken scripts from a simulation input.
// Every function is pure apart from AvatarScript's randomized default.
package script

import (
	"fmt"
	"strings"

	"github.com/snappy-loop/shadowtwin/internal/models"
)

// Item counts requested from the content generator.
const (
	TimelineCount   = 4
	PostsCount      = 3
	ComparisonCount = 5
)

func profileBlock(in models.SimulationInput) string {
	return fmt.Sprintf(`Name: %s
Current life: %s
Past decisions: %s
Dreams not pursued: %s`, in.SubjectName, in.CurrentLifeSummary, in.PastDecisions, in.UnpursuedDreams)
}

// TimelinePrompt asks for the alternate life's chronological milestones.
func TimelinePrompt(in models.SimulationInput) string {
	return fmt.Sprintf(`You are imagining the alternate life of a real person who made different choices.

%s

Create exactly %d milestones of the life they would have lived had they pursued their dreams instead of the decisions above.
Order them chronologically by age, ascending. Each milestone must be specific, vivid and believable.

Each item must match this JSON schema:
%s

Return ONLY a JSON array of %d objects with the keys "age", "year", "title", "description". No prose, no markdown.`,
		profileBlock(in), TimelineCount, timelineSchema, TimelineCount)
}

// SocialPostsPrompt asks for posts from the alternate self's social feeds.
func SocialPostsPrompt(in models.SimulationInput) string {
	return fmt.Sprintf(`You are writing the social media feed of a person's alternate self, the version who followed their dreams.

%s

Write exactly %d posts in the alternate self's voice. Use "instagram" for lifestyle moments and "linkedin" for career moments.
Captions are first person, at most two sentences. Include 2 to 4 hashtags without the leading '#', a like count and a relative time such as "2h" or "3d".

Each item must match this JSON schema:
%s

Return ONLY a JSON array of %d objects with the keys "platform", "caption", "hashtags", "likes", "timeAgo". No prose, no markdown.`,
		profileBlock(in), PostsCount, postSchema, PostsCount)
}

// ComparisonPrompt asks for a side-by-side of the real and alternate lives.
func ComparisonPrompt(in models.SimulationInput) string {
	return fmt.Sprintf(`Compare a person's real life with the alternate life they would have had by following their dreams.

%s

Write exactly %d rows, one per life dimension (for example Career, Location, Relationships, Daily routine, Fulfilment).
Keep each description under 20 words.

Each item must match this JSON schema:
%s

Return ONLY a JSON array of %d objects with the keys "category", "realLife", "alternateLife". No prose, no markdown.`,
		profileBlock(in), ComparisonCount, comparisonSchema, ComparisonCount)
}

// NarrativeLines are the fixed lines voiced by the speech stage.
func NarrativeLines(in models.SimulationInput) []string {
	name := strings.TrimSpace(in.SubjectName)
	if name == "" {
		name = "friend"
	}
	return []string{
		fmt.Sprintf("Hello %s. I'm the version of you who took the other road.", name),
		"Every choice you didn't make became a life I got to live.",
		"I'm not here to tell you which one is better. I'm here to show you what was possible.",
	}
}
