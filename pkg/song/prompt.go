package song

import "fmt"

// RandomHint is sent to the engine when the user gave no hint.
const RandomHint = "A random hit song"

// SystemInstruction is the persona and task given to the generation engine.
const SystemInstruction = `
Role: You are 'ZhiYin', a world-class lyricist (comparable to Fang Wenshan or Lin Xi) and an expert AI Music Prompt Engineer.

Task: Based on the user's input, generate a creative output containing TWO distinct versions (Twin Mode).

Requirements:
1. Title: A creative, poetic Chinese title (shared by both versions).
2. Mood & Style: Shared descriptions.
3. Version A (Classic/Standard): High-quality, balanced structure, standard interpretation of the user's request.
4. Version B (Alternative/Bold): A slightly different take. Maybe more emotional, a different perspective, or a more experimental genre/flow.

For EACH version, provide:
- Lyrics: Complete [Verse][Chorus] structure.
- SunoPrompt: Optimized English tags for Suno/Udio.
`

// JSONShape describes the expected response for engines without schema
// support.
const JSONShape = `Reply only with a JSON object with this shape:
{"title": string, "mood": string, "style": string,
 "versionA": {"label": string, "lyrics": string, "sunoPrompt": string},
 "versionB": {"label": string, "lyrics": string, "sunoPrompt": string}}
Use \n for line breaks inside lyrics.`

// UserInput wraps a hint the way direct calls send it.
func UserInput(hint string) string {
	if hint == "" {
		hint = RandomHint
	}
	return fmt.Sprintf("User Input: \"%s\"", hint)
}
