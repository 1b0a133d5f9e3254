package scoring

var funnyRules = &Rules{
	SearchPhrases: []string{
		"funny fails compilation", "unexpected moments caught", "comedy sketches viral",
		"hilarious reactions", "funny animals doing", "epic fail video",
		"instant karma funny", "comedy gold moments", "prank goes wrong",
		"funny kids saying", "dad jokes reaction", "wedding fails funny",
		"sports bloopers hilarious", "funny news bloopers", "pet fails compilation",
		"funny work moments", "hilarious misunderstanding", "comedy timing perfect",
		"funny voice over", "unexpected plot twist", "funny security camera",
		"hilarious interview moments", "comedy accident harmless", "funny dancing fails",
		"laughing contagious video", "funny sleep talking", "comedy scare pranks",
		"funny workout fails", "hilarious costume fails", "funny zoom fails",
	},
	TitleKeywords: []string{
		"funny", "hilarious", "comedy", "fail", "fails", "laugh", "prank",
		"bloopers", "joke", "humor", "lol", "caught on camera",
	},
	ValidationKeywords: []string{
		"funny", "hilarious", "lol", "lmao", "laughing", "laughed", "comedy",
		"dying", "can't stop", "crying laughing", "cracked me up",
	},
	EmotionalKeywords: []string{
		"laugh", "laughing", "grin", "smile", "cheered me up", "made my day",
		"tears of laughter",
	},
	AuthenticityKeywords: []string{
		"real", "genuine", "not staged", "unscripted", "spontaneous", "candid",
	},
	EngagementKeywords: []string{
		"watched this again", "on loop", "shared this", "sent this to",
		"keep replaying", "never gets old",
	},
	BaseScore:     1.8,
	ValidationK:   0.08,
	EmotionalK:    0.05,
	AuthenticityK: 0.02,
	EngagementK:   0.01,
}
