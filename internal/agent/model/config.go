package model

// ================ Config ================
type ConversationConfig struct {
	TTL      string `envconfig:"CONVERSATION_TTL" default:"30m"`
	MaxTurns int    `envconfig:"CONVERSATION_MAX_TURNS" default:"10"`
	Tools    struct {
		MaxCalls int `envconfig:"CONVERSATION_TOOL_MAX_CALLS" default:"6"`
	}
}

type ClassifierModelConfig struct {
	Model       string  `envconfig:"CLASSIFIER_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"CLASSIFIER_MAX_TOKENS" default:"256"`
	Temperature float32 `envconfig:"CLASSIFIER_TEMPERATURE" default:"0"`
}

type ExtractorModelConfig struct {
	Model       string  `envconfig:"EXTRACTOR_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"EXTRACTOR_MAX_TOKENS" default:"1024"`
	Temperature float32 `envconfig:"EXTRACTOR_TEMPERATURE" default:"0.2"`
}

type AnswerModelConfig struct {
	Model       string  `envconfig:"ANSWER_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"ANSWER_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"ANSWER_TEMPERATURE" default:"0.4"`
}

type ScreenConfig struct {
	DataPath string `envconfig:"SCREEN_DATA_PATH" default:"data/sp500_companies.csv"`
	// TopN is how many results are displayed and exported.
	TopN int `envconfig:"SCREEN_TOP_N" default:"15"`
	// FetchN is how many ranked results are kept for follow-up exports.
	FetchN         int    `envconfig:"SCREEN_FETCH_N" default:"100"`
	ExportDir      string `envconfig:"SCREEN_EXPORT_DIR" default:"exports"`
	SectorNeutral  bool   `envconfig:"SCREEN_SECTOR_NEUTRAL" default:"false"`
	UniverseFilter string `envconfig:"SCREEN_UNIVERSE_FILTER"`
}

type AgentConfig struct {
	TurnTimeout string `envconfig:"AGENT_TURN_TIMEOUT" default:"60s"`
}
