package model

// DefaultLanguage は解析結果の既定の出力言語コード。
const DefaultLanguage = "en"

// supportedLanguages は解析結果の出力言語として選択可能な言語コードの集合。
var supportedLanguages = map[string]bool{
	"en": true,
	"de": true,
	"ru": true,
	"uk": true,
	"tr": true,
	"ar": true,
	"fr": true,
	"es": true,
	"pl": true,
	"it": true,
}

// IsSupportedLanguage は言語コードが選択可能な集合に含まれるかを返す。
func IsSupportedLanguage(code string) bool {
	return supportedLanguages[code]
}
