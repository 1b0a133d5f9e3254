package scoring

var heartwarmingRules = &Rules{
	SearchPhrases: []string{
		"soldier surprise homecoming", "dog reunion owner", "random acts kindness",
		"baby first time hearing", "proposal reaction emotional", "surprise gift reaction",
		"homeless man helped", "teacher surprised students", "reunion after years",
		"saving animal rescue", "kid helps stranger", "emotional wedding moment",
		"surprise visit family", "grateful reaction wholesome", "community helps neighbor",
		"dad meets baby", "emotional support moment", "stranger pays bill",
		"found lost pet", "surprise donation reaction", "elderly couple sweet",
		"child generous sharing", "unexpected hero saves", "touching tribute video",
		"faith humanity restored", "emotional thank you",
		"surprise birthday elderly", "veteran honored ceremony", "wholesome interaction strangers",
	},
	TitleKeywords: []string{
		"heartwarming", "emotional", "touching", "wholesome", "surprise",
		"reunion", "kindness", "rescue", "homecoming", "helps", "saved",
		"tribute", "sweet", "grateful", "adorable",
	},
	ValidationKeywords: []string{
		"touching", "crying", "cried", "tears", "heartwarming", "beautiful",
		"wholesome", "emotional", "sweet", "faith in humanity", "warms my heart",
		"made my day",
	},
	EmotionalKeywords: []string{
		"cry", "tears", "emotional", "moved", "chills", "goosebumps",
		"sobbing", "onion", "feels",
	},
	AuthenticityKeywords: []string{
		"real", "genuine", "authentic", "actually happened", "so pure",
		"no acting", "raw",
	},
	EngagementKeywords: []string{
		"watched this again", "keep coming back", "shared this", "subscribed",
		"saved this", "on repeat", "never gets old",
	},
	BaseScore:     2.0,
	ValidationK:   0.05,
	EmotionalK:    0.04,
	AuthenticityK: 0.02,
	EngagementK:   0.01,
}
