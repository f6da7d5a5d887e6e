package mood

// defaultLexicon maps words to emotion categories. It only needs enough
// signal to steer the response register, not full sentiment coverage.
var defaultLexicon = map[string]string{
	// joy
	"happy": EmotionJoy, "glad": EmotionJoy, "joy": EmotionJoy,
	"joyful": EmotionJoy, "great": EmotionJoy, "wonderful": EmotionJoy,
	"love": EmotionJoy, "loved": EmotionJoy, "excited": EmotionJoy,
	"proud": EmotionJoy, "grateful": EmotionJoy, "thankful": EmotionJoy,
	"fun": EmotionJoy, "smile": EmotionJoy, "smiled": EmotionJoy,
	"laughing": EmotionJoy, "laughed": EmotionJoy, "enjoyed": EmotionJoy,
	"amazing": EmotionJoy, "beautiful": EmotionJoy, "peaceful": EmotionJoy,
	"relaxed": EmotionJoy, "content": EmotionJoy, "hopeful": EmotionJoy,

	// surprise
	"surprised": EmotionSurprise, "unexpected": EmotionSurprise,
	"wow": EmotionSurprise, "suddenly": EmotionSurprise,
	"shocked": EmotionSurprise, "astonished": EmotionSurprise,

	// sadness
	"sad": EmotionSadness, "unhappy": EmotionSadness, "depressed": EmotionSadness,
	"down": EmotionSadness, "lonely": EmotionSadness, "miss": EmotionSadness,
	"missing": EmotionSadness, "cry": EmotionSadness, "crying": EmotionSadness,
	"cried": EmotionSadness, "grief": EmotionSadness, "hopeless": EmotionSadness,
	"empty": EmotionSadness, "tired": EmotionSadness, "exhausted": EmotionSadness,
	"hurt": EmotionSadness, "heartbroken": EmotionSadness, "lost": EmotionSadness,

	// anger
	"angry": EmotionAnger, "mad": EmotionAnger, "furious": EmotionAnger,
	"annoyed": EmotionAnger, "frustrated": EmotionAnger, "hate": EmotionAnger,
	"irritated": EmotionAnger, "rage": EmotionAnger, "unfair": EmotionAnger,

	// fear
	"afraid": EmotionFear, "scared": EmotionFear, "anxious": EmotionFear,
	"anxiety": EmotionFear, "worried": EmotionFear, "worry": EmotionFear,
	"nervous": EmotionFear, "panic": EmotionFear, "terrified": EmotionFear,
	"overwhelmed": EmotionFear, "stressed": EmotionFear, "stress": EmotionFear,

	// disgust
	"disgusted": EmotionDisgust, "disgusting": EmotionDisgust,
	"gross": EmotionDisgust, "awful": EmotionDisgust, "terrible": EmotionDisgust,
	"horrible": EmotionDisgust,

	// neutral
	"okay": EmotionNeutral, "fine": EmotionNeutral, "normal": EmotionNeutral,
	"usual": EmotionNeutral, "alright": EmotionNeutral,
}
