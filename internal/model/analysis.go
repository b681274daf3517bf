package model

// Document は解析対象として選択されたファイルを表す。
type Document struct {
	Name string
	MIME string
	Size int64
	Data []byte
}

// Analysis は手紙の構造化解析内容を表す。各フィールドは省略されうる。
type Analysis struct {
	Sender       string `json:"sender,omitempty"`
	LetterType   string `json:"letter_type,omitempty"`
	MainContent  string `json:"main_content,omitempty"`
	FullAnalysis string `json:"full_analysis,omitempty"`
}

// AnalysisResult はバックエンドが返す手紙解析の結果を表す。
// ワークフローが成功状態のときにのみ存在する。
type AnalysisResult struct {
	Summary          string    `json:"summary"`
	Analysis         *Analysis `json:"analysis,omitempty"`
	ActionsNeeded    []string  `json:"actions_needed,omitempty"`
	UrgencyLevel     string    `json:"urgency_level,omitempty"`
	ResponseTemplate string    `json:"response_template,omitempty"`
	LLMProvider      string    `json:"llm_provider,omitempty"`
	FileName         string    `json:"file_name,omitempty"`
	AnalysisLanguage string    `json:"analysis_language,omitempty"`
}

// ProviderStatus はバックエンドのLLMプロバイダー稼働状況を表す。
// 起動時のUI注釈にのみ使用し、取得失敗は無視される。
type ProviderStatus struct {
	Status          string `json:"status"`
	ActiveProviders int    `json:"active_providers"`
	TotalProviders  int    `json:"total_providers"`
}
