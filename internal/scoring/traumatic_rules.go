package scoring

var traumaticRules = &Rules{
	SearchPhrases: []string{
		"shocking moments caught", "dramatic rescue operation", "natural disaster footage",
		"intense police chase", "survival story real", "near death experience",
		"unbelievable close call", "extreme weather footage", "emergency response dramatic",
		"accident caught camera", "dangerous situation survived", "storm chaser footage",
		"rescue mission dramatic", "wildfire evacuation footage", "flood rescue dramatic",
		"earthquake footage real", "tornado close encounter", "avalanche survival story",
		"lightning strike caught", "road rage incident", "building collapse footage",
		"helicopter rescue dramatic", "cliff rescue operation", "shark encounter real",
		"volcano eruption footage", "mudslide caught camera", "train near miss",
		"bridge collapse footage", "explosion caught camera", "emergency landing footage",
	},
	TitleKeywords: []string{
		"shocking", "dramatic", "rescue", "disaster", "survival", "intense",
		"caught on camera", "close call", "emergency", "footage", "near miss",
		"terrifying",
	},
	ValidationKeywords: []string{
		"scary", "terrifying", "intense", "shocking", "crazy", "insane",
		"dramatic", "close call", "unbelievable", "heart stopped", "can't believe",
	},
	EmotionalKeywords: []string{
		"scared", "anxious", "tense", "heart racing", "chills", "nightmares",
		"shaking", "praying",
	},
	AuthenticityKeywords: []string{
		"real", "actual footage", "genuine", "really happened", "firsthand",
		"was there",
	},
	EngagementKeywords: []string{
		"watched this again", "couldn't look away", "shared this",
		"glued to the screen", "had to rewatch",
	},
	BaseScore:     1.5,
	ValidationK:   0.06,
	EmotionalK:    0.05,
	AuthenticityK: 0.03,
	EngagementK:   0.01,
}
