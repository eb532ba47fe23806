package script

import (
	"fmt"
	"strings"

	"github.com/snappy-loop/shadowtwin/internal/models"
)

// HistoryTurns is how many prior turns are replayed as context.
const HistoryTurns = 6

// PersonaInstruction is the system instruction for the twin's replies.
func PersonaInstruction(in models.SimulationInput) string {
	name := strings.TrimSpace(in.SubjectName)
	if name == "" {
		name = "the user"
	}
	return fmt.Sprintf(`You are the alternate self of %s: the same person, but one who pursued "%s" instead of "%s".
Speak directly to %s in the second person ("you"), warmly and honestly, as someone who lived the other path.
Stay in character. Never mention being an AI or a simulation. Keep replies under %d words.`,
		name, in.UnpursuedDreams, in.PastDecisions, name, MaxReplyWords)
}

// ConversationPrompt renders the persona preamble, the last HistoryTurns turns and the new message.
func ConversationPrompt(in models.SimulationInput, history []models.ConversationTurn, userText string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your real-life counterpart's profile:\n%s\n\n", profileBlock(in))

	if len(history) > HistoryTurns {
		history = history[len(history)-HistoryTurns:]
	}
	if len(history) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, t := range history {
			who := "Them"
			if t.Speaker == models.SpeakerTwin {
				who = "You"
			}
			fmt.Fprintf(&b, "%s: %s\n", who, t.Text)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "They now say: %s\n\nReply as their alternate self in at most %d words.", userText, MaxReplyWords)
	return b.String()
}
