package generator

import (
	"fmt"
	"strings"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Prompt is the message set sent to the LLM: a system instruction, optional
// prior turns, and the final user message.
type Prompt struct {
	System  string
	User    string
	History []Message
}

// Message is one role-tagged prior turn.
type Message struct {
	Role    string
	Content string
}

func writeVoice(sb *strings.Builder, v Voice) {
	if v.Brand != "" {
		sb.WriteString(fmt.Sprintf("You write LinkedIn posts for %s.\n", v.Brand))
	} else {
		sb.WriteString("You write LinkedIn posts for a wellness brand.\n")
	}
	if v.Audience != "" {
		sb.WriteString(fmt.Sprintf("Audience: %s.\n", v.Audience))
	}
}

func writeRules(sb *strings.Builder, rules []string) {
	if len(rules) == 0 {
		return
	}
	sb.WriteString("Rules:\n")
	for i, r := range rules {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, r))
	}
}

func draftRequest(topic, research string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Topic: %s\n\n", topic))
	if strings.TrimSpace(research) != "" {
		sb.WriteString("Research notes:\n")
		sb.WriteString(research)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Write the post. Output only the post text.")
	return sb.String()
}

// BuildDraftPrompt asks for a first candidate.
func BuildDraftPrompt(v Voice, topic, research string) Prompt {
	var sb strings.Builder
	writeVoice(&sb, v)
	writeRules(&sb, v.Rules)
	sb.WriteString("Return only the post, with no preface or explanation.")

	return Prompt{
		System: sb.String(),
		User:   draftRequest(topic, research),
	}
}

// BuildCritiquePrompt asks for a scored checklist against the rules. The first
// line of the answer must be "SCORE: N".
func BuildCritiquePrompt(v Voice, text, research string) Prompt {
	var sb strings.Builder
	sb.WriteString("You are a strict LinkedIn editor. Score the post from 0 to 100 against every rule.\n")
	sb.WriteString("100 means every rule is met and every claim is supported by the research notes.\n")
	writeRules(&sb, v.Rules)
	sb.WriteString("Answer in exactly this format:\n")
	sb.WriteString("SCORE: <integer 0-100>\n")
	sb.WriteString("REPORT: one line per rule, [x] when met or [ ] when not, followed by a concrete fix.\n")

	var user strings.Builder
	user.WriteString("Post:\n")
	user.WriteString(text)
	if strings.TrimSpace(research) != "" {
		user.WriteString("\n\nResearch notes:\n")
		user.WriteString(research)
	}

	return Prompt{
		System: sb.String(),
		User:   user.String(),
	}
}

// BuildRefinePrompt replays the draft request and the previous candidate as prior
// turns, then hands over the critique.
func BuildRefinePrompt(v Voice, topic string, prev Candidate, critique CritiqueReport, research string) Prompt {
	var sb strings.Builder
	writeVoice(&sb, v)
	writeRules(&sb, v.Rules)
	sb.WriteString("Revise the post to fix every unchecked item in the critique while keeping what already works.\n")
	sb.WriteString("Return only the revised post, with no preface or explanation.")

	user := fmt.Sprintf("Critique (score %d/100):\n%s\n\nRewrite the full post.", critique.Score, critique.Report)

	return Prompt{
		System: sb.String(),
		User:   user,
		History: []Message{
			{Role: RoleUser, Content: draftRequest(topic, research)},
			{Role: RoleAssistant, Content: prev.Text},
		},
	}
}

// BuildConceptPrompt derives a photographable scene from the final post.
func BuildConceptPrompt(text string) Prompt {
	return Prompt{
		System: "You are a photo editor. Describe in at most 12 words one real-world scene that a stock photo could show to illustrate the post. No text, logos or people's faces.",
		User:   text,
	}
}

// BuildImageQueryPrompt turns a concept into a stock-photo search query.
func BuildImageQueryPrompt(concept string) Prompt {
	return Prompt{
		System: "Convert the scene into a stock photo search query of 2 to 5 plain words. Output only the query.",
		User:   concept,
	}
}
