package script

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/snappy-loop/shadowtwin/internal/models"
)

type monologue struct {
	keywords []string
	text     string // %s is the dream text
}

var keywordMonologues = []monologue{
	{
		keywords: []string{"photo", "art", "paint", "draw", "design"},
		text: `Hey, it's you. Well, the you who picked up the camera and never put it down. ` +
			`I spent my twenties chasing light in places I could barely afford to reach. ` +
			`Some months the work paid, some months it didn't, but every frame felt like mine. ` +
			`You wanted %s. I lived it, and I want you to know it was worth the risk. ` +
			`It's not too late for you to make something with your own hands.`,
	},
	{
		keywords: []string{"travel", "abroad", "world", "country", "move"},
		text: `Hi. I'm the you who bought the one-way ticket. ` +
			`I learned new languages badly and then a little less badly. ` +
			`I got lost more times than I can count, and every wrong turn taught me something. ` +
			`You dreamed of %s. I carried that dream across borders for you. ` +
			`The world is still out there, and it's still waiting for you.`,
	},
	{
		keywords: []string{"business", "startup", "company", "founder", "own"},
		text: `Hey, it's you, the version who quit and built the thing. ` +
			`The first year was terrifying and the second was worse. ` +
			`But somewhere in the third, people started to care about what we made. ` +
			`You wanted %s. I can tell you the fear never fully leaves, it just becomes fuel. ` +
			`Whatever you build next, build it like it matters.`,
	},
	{
		keywords: []string{"music", "sing", "band", "guitar", "piano"},
		text: `Hi, it's you. The one who kept playing after everyone told us to stop. ` +
			`Small stages, late nights, long drives between towns you've never heard of. ` +
			`You dreamed of %s, and I got to feel a room go quiet when the song began. ` +
			`You still have that music in you. Let it out once in a while.`,
	},
}

var genericMonologues = []string{
	`Hey, it's you. The other you. ` +
		`I took the path you set aside, the one that looked too uncertain. ` +
		`You wanted %s, and I went after it. It wasn't perfect. Nothing is. ` +
		`But I wanted you to see that the door you closed was never locked. ` +
		`You can still open something new.`,
	`Hi. I'm who you would have been if you'd said yes that day. ` +
		`I followed %s wherever it led, even when it didn't make sense to anyone else. ` +
		`I'm not here to make you regret anything. ` +
		`I'm here to remind you that the parts of you that dreamed are still there.`,
	`It's strange to finally meet you. ` +
		`I'm the life that grew out of %s. ` +
		`We share the same beginning, the same fears, the same stubborn hope. ` +
		`The only difference is one decision. Maybe your next one can be braver.`,
}

// AvatarScript picks the monologue the avatar speaks. A keyword in the dreams or decisions picks
// a themed script; otherwise rnd picks one of the generic ones. A nil rnd picks the first.
func AvatarScript(in models.SimulationInput, rnd *rand.Rand) string {
	dream := strings.TrimSpace(in.UnpursuedDreams)
	if dream == "" {
		dream = "a different life"
	}
	words := LowerWords(in.UnpursuedDreams + " " + in.PastDecisions)
	for _, m := range keywordMonologues {
		if HasWordPrefix(words, m.keywords) {
			return LimitWords(fmt.Sprintf(m.text, dream), MaxScriptWords)
		}
	}
	i := 0
	if rnd != nil {
		i = rnd.Intn(len(genericMonologues))
	}
	return LimitWords(fmt.Sprintf(genericMonologues[i], dream), MaxScriptWords)
}
