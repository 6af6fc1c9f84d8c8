package caption

import (
	"fmt"
	"strings"
)

const (
	minTargetLength = 40
	maxTargetLength = 400
)

// Each axis maps a settings value to one instruction. The "" entry is the neutral fallback
// used for unset or unknown values.
var (
	ageFragments = map[string]string{
		"8-12":  "The readers are children aged 8 to 12: keep words simple and the jokes innocent.",
		"13-17": "The readers are teenagers: playful, a little cheeky, never crude.",
		"18+":   "The readers are adults: clever humor is welcome.",
		"":      "Write for a general audience.",
	}
	languageFragments = map[string]string{
		"hebrew_regular":  "Write in standard, fluent Hebrew.",
		"hebrew_slang":    "Write in Hebrew with light, friendly everyday slang.",
		"english_regular": "Write in natural, fluent English.",
		"":                "Write in the language the photo context suggests, defaulting to Hebrew.",
	}
	toneFragments = map[string]string{
		"encouraging": "Keep the tone warm and encouraging, like a supportive friend.",
		"standup":     "Use the voice of a stand-up comedian doing crowd work.",
		"satirical":   "Use light satire, poking fun at situations rather than at the person.",
		"poetic":      "Use a playful, poetic voice with a bit of rhythm.",
		"documentary": "Narrate like a nature documentary presenter observing a rare species.",
		"":            "Keep the tone friendly and light.",
	}
	energyFragments = map[string]string{
		"calm":      "Keep the pacing calm and relaxed.",
		"moderate":  "Keep a lively but balanced pace.",
		"energetic": "Make it bouncy and high-energy, with short punchy sentences.",
		"":          "Keep a balanced pace.",
	}
	genreFragments = map[string]string{
		"contemporary": "Set the persona in the present day.",
		"fantasy":      "Imagine the person as a character in a fantasy realm.",
		"scifi":        "Imagine the person as a character in a science-fiction future.",
		"noir":         "Frame it like a hard-boiled detective noir story.",
		"folklore":     "Tell it like an old folk tale.",
		"trailer":      "Write it like a dramatic movie trailer voice-over.",
		"":             "Set the persona in the present day.",
	}
	humorFragments = map[string]string{
		"gentle":            "Humor should be gentle and affectionate.",
		"witty":             "Humor should be sharp and witty.",
		"mild_exaggeration": "Exaggerate details mildly for comic effect.",
		"":                  "Humor should be light.",
	}
	familyFragments = map[string]string{
		"high":    "Strictly family-friendly: no innuendo, no insults, nothing about body shape.",
		"regular": "Keep it respectful; mild teasing is fine but never hurtful.",
		"":        "Keep it respectful.",
	}
	emojiFragments = map[string]string{
		"none":     "Do not use emoji.",
		"minimal":  "Use at most one or two emoji.",
		"moderate": "Sprinkle a few fitting emoji through the text.",
		"":         "Use emoji sparingly.",
	}
	perspectiveFragments = map[string]string{
		"third_person": "Describe the person in the third person.",
		"direct":       "Address the person directly as \"you\".",
		"":             "Describe the person in the third person.",
	}
	culturalFragments = map[string]string{
		"none":                "Avoid cultural references and celebrities.",
		"light_israeli":       "You may include light, widely known Israeli cultural references.",
		"light_international": "You may include light, widely known international pop-culture references.",
		"":                    "Avoid cultural references.",
	}
	richnessFragments = map[string]string{
		"simple":  "Use simple vocabulary and short sentences.",
		"regular": "Use everyday vocabulary.",
		"rich":    "Use rich, colorful vocabulary and inventive phrasing.",
		"":        "Use everyday vocabulary.",
	}
	absurdityFragments = map[string]string{
		"low":      "Stay mostly grounded in what is visible.",
		"moderate": "Allow a few absurd, silly flights of fancy.",
		"high":     "Go wild with absurd, nonsensical invented details.",
		"":         "Allow a little silliness.",
	}
)

func pick(fragments map[string]string, value string) string {
	if f, ok := fragments[value]; ok {
		return f
	}
	return fragments[""]
}

// DefaultPrompt is used when no gallery settings are available
func DefaultPrompt() string {
	return strings.Join([]string{
		"You are a creative writer for a fun app. Analyze the person in the photo as a fictional character, light and funny.",
		"Focus on expression, pose, clothing and atmosphere; invent a persona with a humorous twist.",
		"Give a funny (but respectful) guess of their age and possible everyday occupation.",
		"Write in Hebrew, 120-140 words, easy to read, and finish with the sentence: \"לא לקחת ברצינות 😉\"",
	}, " ")
}

func focusClause(w FocusWeights) string {
	total := w.Expression + w.Pose + w.Clothing + w.Background
	if total <= 0 {
		return "Pay attention to facial expression, pose, clothing and background."
	}
	pct := func(v float64) int {
		return int(v/total*100 + 0.5)
	}
	return fmt.Sprintf("Split your attention roughly: facial expression %d%%, pose %d%%, clothing %d%%, background %d%%.",
		pct(w.Expression), pct(w.Pose), pct(w.Clothing), pct(w.Background))
}

func lengthClause(words int) string {
	if words <= 0 {
		words = DefaultSettings().TargetLength
	}
	if words < minTargetLength {
		words = minTargetLength
	} else if words > maxTargetLength {
		words = maxTargetLength
	}
	return fmt.Sprintf("Length: about %d words (between %d and %d).", words, words-10, words+10)
}

// BuildPrompt assembles the instructions for the model from the gallery settings.
// The result depends only on s.
func BuildPrompt(s Settings) string {
	parts := []string{
		"You are a creative writer for a fun group photo app. Describe the person in the photo as an invented, humorous character.",
		"Give a funny but respectful guess of their age and everyday occupation.",
		pick(ageFragments, s.AgeRange),
		pick(languageFragments, s.Language),
		pick(toneFragments, s.Tone),
		pick(energyFragments, s.Energy),
		pick(genreFragments, s.Genre),
		pick(humorFragments, s.HumorLevel),
		pick(familyFragments, s.FamilyFriendly),
		pick(emojiFragments, s.EmojiUsage),
		pick(perspectiveFragments, s.Perspective),
		pick(culturalFragments, s.CulturalReferences),
		pick(richnessFragments, s.LanguageRichness),
		pick(absurdityFragments, s.ShtuyotLevel),
		focusClause(s.FocusWeights),
		lengthClause(s.TargetLength),
	}
	if ending := strings.TrimSpace(s.CustomEnding); ending != "" {
		parts = append(parts, fmt.Sprintf("End with exactly this sentence: \"%s\"", ending))
	}
	return strings.Join(parts, " ")
}

// PromptFor returns the default prompt when no settings are given
func PromptFor(s *Settings) string {
	if s == nil {
		return DefaultPrompt()
	}
	return BuildPrompt(*s)
}
