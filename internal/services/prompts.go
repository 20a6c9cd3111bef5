package services

import (
	"fmt"
	"strings"

	"github.com/noodl-labs/kodo-backend/internal/types"
)

// Prompt builders for the generation pipeline. Every prompt demands a bare
// JSON object so GenerateJSON can parse the reply directly.

func classifyIntentPrompt(topic string) string {
	return fmt.Sprintf(`Classify the user's request below into exactly one intent.

"learn" means the user wants a structured course to study a subject in depth.
"help" means the user wants practical step-by-step help with a concrete task or problem.

Request: %q

Respond with a JSON object only, no markdown:
{"intent": "learn" or "help"}`, topic)
}

func rephraseTitlePrompt(topic, intent string) string {
	flavor := "an engaging course title for someone studying this subject"
	if intent == types.IntentHelp {
		flavor = "a clear, action-oriented guide title for someone solving this problem"
	}
	return fmt.Sprintf(`Rewrite the following request as %s. Keep it under 10 words and start it with a single fitting emoji.

Request: %q

Respond with a JSON object only, no markdown:
{"title": "..."}`, flavor, topic)
}

func curriculumPrompt(title, intent string) string {
	framing := "a progressive curriculum where each level builds on the previous one"
	if intent == types.IntentHelp {
		framing = "an ordered sequence of practical stages that walk the user from start to finish"
	}
	return fmt.Sprintf(`Design %s for the path titled %q.

Rules:
- Between 3 and 10 levels.
- Each level title starts with a single fitting emoji.
- Do NOT number the titles; ordering is implied by array position.
- Titles must be short (under 8 words) and distinct.

Respond with a JSON object only, no markdown:
{"levels": ["...", "..."]}`, framing, title)
}

func descriptionsPrompt(title string, levelTitles []string) string {
	return fmt.Sprintf(`Write two descriptions for the learning path titled %q, whose levels are:
%s

Rules:
- "short_description" is under 20 words and works as a card subtitle.
- "long_description" is under 80 words and sells the journey through the levels.

Respond with a JSON object only, no markdown:
{"short_description": "...", "long_description": "..."}`, title, "- "+strings.Join(levelTitles, "\n- "))
}

func levelContentPrompt(pathTitle, levelTitle string, levelNumber, totalLevels int, intent string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Create the content for level %d of %d, titled %q, in the path %q.

Produce between 5 and 8 items. Each item is either a slide or a quiz:
- A slide: {"type": "slide", "content": "..."} where content is 2-4 sentences of rich markdown teaching material (a ### heading, bold key terms, lists where they help).
- A quiz: {"type": "quiz", "content": {"question": "...", "options": ["...", "...", "...", "..."], "correctAnswerIndex": 0, "explanation": "..."}} with exactly 4 options.

Rules:
- Interleave quizzes between slides; never open with a quiz.
- Quizzes only test material covered by earlier slides in this level.
`, levelNumber, totalLevels, levelTitle, pathTitle)
	if levelNumber == totalLevels {
		b.WriteString("- This is the final level: include at least one quiz that reviews the whole path.\n")
	}
	if intent == types.IntentHelp {
		b.WriteString("- Keep slides practical and instruction-focused rather than theoretical.\n")
	}
	b.WriteString(`
Respond with a JSON object only, no markdown:
{"items": [ ... ]}`)
	return b.String()
}

func certificateArtPrompt(pathTitle string) string {
	return fmt.Sprintf(`Generate a celebratory digital certificate artwork for completing the learning path %q. Square composition, dark background, a single bold emblem in the center, the mood of an achievement badge. No text or lettering in the image.`, pathTitle)
}
