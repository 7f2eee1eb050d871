package settings

import (
	"golang.org/x/text/language"
)

// Language is a supported interface language.
type Language string

const (
	// Auto follows the client's preferred language.
	Auto   Language = ""
	En     Language = "en"
	ZhHans Language = "zh-Hans"
	ZhHant Language = "zh-Hant"
	Ja     Language = "ja"
)

// LanguageOption is a selectable language with its own name.
type LanguageOption struct {
	Code  Language `json:"code"`
	Label string   `json:"label"`
}

// Languages lists the selectable languages.
var Languages = []LanguageOption{
	{En, "English (US)"},
	{ZhHans, "简体中文 (中国大陆)"},
	{ZhHant, "繁體中文 (中國台灣)"},
	{Ja, "日本語 (日本)"},
}

// Valid reports whether l is Auto or a supported language.
func (l Language) Valid() bool {
	switch l {
	case Auto, En, ZhHans, ZhHant, Ja:
		return true
	}
	return false
}

var (
	regionTW   = language.MustParseRegion("TW")
	regionHK   = language.MustParseRegion("HK")
	scriptHant = language.MustParseScript("Hant")
)

// Detect maps a client language preference, such as an Accept-Language
// header or a single BCP 47 tag, to a supported language. Only the most
// preferred tag is considered. Traditional Chinese is chosen for Taiwan,
// Hong Kong and explicit Hant tags, Simplified for other Chinese tags.
func Detect(pref string) Language {
	tags, _, err := language.ParseAcceptLanguage(pref)
	if err != nil || len(tags) == 0 {
		return En
	}
	tag := tags[0]
	base, _ := tag.Base()
	switch base.String() {
	case "zh":
		region, _ := tag.Region()
		script, conf := tag.Script()
		if region == regionTW || region == regionHK || (conf == language.Exact && script == scriptHant) {
			return ZhHant
		}
		return ZhHans
	case "ja":
		return Ja
	}
	return En
}
