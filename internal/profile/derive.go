package profile

import "slices"

// Answers is one completed onboarding questionnaire. Option fields carry the
// form's option codes; the two list fields carry checkbox labels verbatim.
type Answers struct {
	ReadingStyle        string   `json:"readingStyle"`
	Distractions        string   `json:"distractions"`
	ComplexTopics       string   `json:"complexTopics"`
	AdditionalNeeds     []string `json:"additionalNeeds"`
	LearningEnvironment string   `json:"learningEnvironment"`
	TimePreference      string   `json:"timePreference"`
	FocusChallenges     []string `json:"focusChallenges"`
}

// Questionnaire option codes and checkbox labels that Derive reacts to.
const (
	ReadingShortParagraphs = "short-paragraphs"
	ReadingBulletPoints    = "bullet-points"
	ReadingSingleSentences = "single-sentences"
	ReadingStandard        = "standard"

	DistractAdsImages  = "ads-images"
	DistractSidebars   = "sidebars"
	DistractAnimations = "animations"
	DistractMinimal    = "minimal"

	TopicsAnalogies  = "analogies"
	TopicsSummaries  = "summaries"
	TopicsStepByStep = "step-by-step"
	TopicsDetailed   = "detailed"

	TimeShortBursts = "short-bursts"

	NeedLargerFont   = "Larger font sizes"
	NeedHighContrast = "High contrast color schemes"

	ChallengeComplexVocabulary = "Difficulty with complex vocabulary"
)

// Derive maps questionnaire answers to a complete profile. It never fails:
// unknown or empty answers fall through to the same values as Default.
//
// The rules below are applied in order and later rules overwrite fields set
// by earlier ones. The vocabulary and summary rules in particular depend on
// that order for combined answers.
func Derive(a Answers) Profile {
	p := Default()

	switch a.ReadingStyle {
	case ReadingShortParagraphs:
		p.Text.Chunking = Chunking{Strategy: ChunkSentenceLimit, MaxLength: 3}
	case ReadingBulletPoints:
		p.Text.Chunking = Chunking{Strategy: ChunkSentenceLimit, MaxLength: 2}
	case ReadingSingleSentences:
		p.Text.Chunking = Chunking{Strategy: ChunkSentenceLimit, MaxLength: 1}
	default:
		p.Text.Chunking = Chunking{Strategy: ChunkNone, MaxLength: 5}
	}

	level := SimplifyNone
	if slices.Contains(a.FocusChallenges, ChallengeComplexVocabulary) {
		level = SimplifyIntermediate
	}
	if a.ComplexTopics == TopicsAnalogies {
		level = SimplifyBasic
	}
	if a.TimePreference == TimeShortBursts {
		level = SimplifyIntermediate
	}
	p.Text.Vocabulary.SimplificationLevel = level

	switch a.Distractions {
	case DistractAdsImages:
		p.Visuals.DistractionFilter = DistractionFilter{Enabled: true, Sensitivity: SensitivityHigh}
	case DistractSidebars:
		p.Visuals.DistractionFilter = DistractionFilter{Enabled: true, Sensitivity: SensitivityMedium}
	case DistractAnimations:
		p.Visuals.DistractionFilter = DistractionFilter{Enabled: true, Sensitivity: SensitivityHigh}
	default:
		p.Visuals.DistractionFilter = DistractionFilter{Enabled: false, Sensitivity: SensitivityMedium}
	}

	summary := Summarization{DefaultState: SummaryExpanded, SummaryLength: 100}
	if a.ComplexTopics == TopicsSummaries {
		summary = Summarization{DefaultState: SummaryCollapsed, SummaryLength: 25}
	}
	if a.TimePreference == TimeShortBursts {
		summary.SummaryLength = 15
	}
	p.Simplification.Summarization = summary

	p.Simplification.UseAnalogies = a.ComplexTopics == TopicsAnalogies

	p.Preferences = DisplayPreferences{FontSize: 16, LineHeight: 1.5, ColorScheme: ColorDefault}
	if slices.Contains(a.AdditionalNeeds, NeedLargerFont) {
		p.Preferences.FontSize = 18
	}
	if slices.Contains(a.AdditionalNeeds, NeedHighContrast) {
		p.Preferences.ColorScheme = ColorHighContrast
	}

	return p
}
