package vision

const (
	detectSystemPrompt = `You are a vision classifier. Reply with JSON only: {"critter": true|false, "confidence": 0-1}.`
	detectUserPrompt   = "Detect whether a visible animal is present. Return JSON only with critter and confidence."

	captionSystemPrompt = "You write short, whimsical captions. Output plain text only (no quotes, no hashtags)."
	captionUserPrompt   = "Write 2-3 sentences about what's happening in the image. Focus on animals and action; avoid describing the environment unless it's obvious. You can mention time/season if it feels right. No camera references."

	captionTemperature = 0.7
	captionMaxTokens   = 160
)
