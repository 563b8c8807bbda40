package profile

// Profile is the cognitive profile: how text should be chunked and simplified,
// whether distractions are filtered, and how the reader wants it displayed.
// Every leaf is always populated; see Default.
type Profile struct {
	Text           TextProfile           `json:"text" validate:"required"`
	Simplification SimplificationProfile `json:"simplification" validate:"required"`
	Visuals        VisualsProfile        `json:"visuals" validate:"required"`
	Preferences    DisplayPreferences    `json:"preferences" validate:"required"`
}

type TextProfile struct {
	Chunking   Chunking   `json:"chunking" validate:"required"`
	Vocabulary Vocabulary `json:"vocabulary" validate:"required"`
}

// Chunking controls how paragraphs are split. MaxLength is kept even when
// Strategy is ChunkNone.
type Chunking struct {
	Strategy  ChunkStrategy `json:"strategy" validate:"required,oneof=sentence_limit none"`
	MaxLength int           `json:"maxLength" validate:"min=1"`
}

type Vocabulary struct {
	SimplificationLevel SimplificationLevel `json:"simplificationLevel" validate:"required,oneof=none basic intermediate advanced"`
}

type SimplificationProfile struct {
	UseAnalogies  bool          `json:"useAnalogies"`
	Summarization Summarization `json:"summarization" validate:"required"`
}

// Summarization describes how summaries are presented; SummaryLength is a
// percentage of the original text.
type Summarization struct {
	DefaultState  SummaryState `json:"defaultState" validate:"required,oneof=collapsed expanded"`
	SummaryLength int          `json:"summaryLength" validate:"min=1,max=100"`
}

type VisualsProfile struct {
	DistractionFilter DistractionFilter `json:"distractionFilter" validate:"required"`
}

type DistractionFilter struct {
	Enabled     bool        `json:"enabled"`
	Sensitivity Sensitivity `json:"sensitivity" validate:"required,oneof=low medium high"`
}

type DisplayPreferences struct {
	FontSize    int         `json:"fontSize" validate:"min=12,max=24"`
	LineHeight  float64     `json:"lineHeight" validate:"min=1.2,max=2"`
	ColorScheme ColorScheme `json:"colorScheme" validate:"required,oneof=default high-contrast warm"`
}

type ChunkStrategy string

const (
	ChunkSentenceLimit ChunkStrategy = "sentence_limit"
	ChunkNone          ChunkStrategy = "none"
)

type SimplificationLevel string

const (
	SimplifyNone         SimplificationLevel = "none"
	SimplifyBasic        SimplificationLevel = "basic"
	SimplifyIntermediate SimplificationLevel = "intermediate"
	SimplifyAdvanced     SimplificationLevel = "advanced"
)

type SummaryState string

const (
	SummaryCollapsed SummaryState = "collapsed"
	SummaryExpanded  SummaryState = "expanded"
)

type Sensitivity string

const (
	SensitivityLow    Sensitivity = "low"
	SensitivityMedium Sensitivity = "medium"
	SensitivityHigh   Sensitivity = "high"
)

type ColorScheme string

const (
	ColorDefault      ColorScheme = "default"
	ColorHighContrast ColorScheme = "high-contrast"
	ColorWarm         ColorScheme = "warm"
)

// Default returns the profile used before onboarding and as the fallback
// when a stored profile cannot be read.
func Default() Profile {
	return Profile{
		Text: TextProfile{
			Chunking:   Chunking{Strategy: ChunkNone, MaxLength: 5},
			Vocabulary: Vocabulary{SimplificationLevel: SimplifyNone},
		},
		Simplification: SimplificationProfile{
			UseAnalogies: false,
			Summarization: Summarization{
				DefaultState:  SummaryExpanded,
				SummaryLength: 100,
			},
		},
		Visuals: VisualsProfile{
			DistractionFilter: DistractionFilter{Enabled: false, Sensitivity: SensitivityMedium},
		},
		Preferences: DisplayPreferences{
			FontSize:    16,
			LineHeight:  1.5,
			ColorScheme: ColorDefault,
		},
	}
}
