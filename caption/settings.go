package caption

// FocusWeights tell the model how much attention each part of the photo deserves (0..1)
type FocusWeights struct {
	Expression float64 `json:"expression"`
	Pose       float64 `json:"pose"`
	Clothing   float64 `json:"clothing"`
	Background float64 `json:"background"`
}

// Settings is the captioning style of a gallery
type Settings struct {
	AgeRange           string       `json:"ageRange"`           // 8-12, 13-17, 18+
	Language           string       `json:"language"`           // hebrew_regular, hebrew_slang, english_regular
	Tone               string       `json:"tone"`               // encouraging, standup, satirical, poetic, documentary
	Genre              string       `json:"genre"`              // contemporary, fantasy, scifi, noir, folklore, trailer
	TargetLength       int          `json:"targetLength"`       // words
	FamilyFriendly     string       `json:"familyFriendly"`     // high, regular
	HumorLevel         string       `json:"humorLevel"`         // gentle, witty, mild_exaggeration
	EmojiUsage         string       `json:"emojiUsage"`         // none, minimal, moderate
	Perspective        string       `json:"perspective"`        // third_person, direct
	Energy             string       `json:"energy"`             // calm, moderate, energetic
	LanguageRichness   string       `json:"languageRichness"`   // simple, regular, rich
	CulturalReferences string       `json:"culturalReferences"` // none, light_israeli, light_international
	CustomEnding       string       `json:"customEnding"`
	ShtuyotLevel       string       `json:"shtuyotLevel"` // absurdity: low, moderate, high
	FocusWeights       FocusWeights `json:"focusWeights"`
}

func DefaultSettings() Settings {
	return Settings{
		AgeRange:           "18+",
		Language:           "hebrew_regular",
		Tone:               "standup",
		Genre:              "contemporary",
		TargetLength:       130,
		FamilyFriendly:     "high",
		HumorLevel:         "witty",
		EmojiUsage:         "minimal",
		Perspective:        "third_person",
		Energy:             "moderate",
		LanguageRichness:   "regular",
		CulturalReferences: "none",
		CustomEnding:       "לא לקחת ברצינות 😉",
		ShtuyotLevel:       "moderate",
		FocusWeights: FocusWeights{
			Expression: 0.5,
			Pose:       0.2,
			Clothing:   0.2,
			Background: 0.1,
		},
	}
}
