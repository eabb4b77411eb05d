package domain

import "strings"

// Language is a client-selected UI language code. Empty means the user has
// not made a choice yet.
type Language string

const (
	LanguageUnset   Language = ""
	LanguageEnglish Language = "en"
	LanguageHindi   Language = "hi"
)

func ParseLanguage(raw string) (Language, bool) {
	switch Language(strings.ToLower(strings.TrimSpace(raw))) {
	case LanguageEnglish:
		return LanguageEnglish, true
	case LanguageHindi:
		return LanguageHindi, true
	case LanguageUnset:
		return LanguageUnset, true
	default:
		return LanguageUnset, false
	}
}

// OrEnglish resolves the effective lookup language.
func (l Language) OrEnglish() Language {
	if l == LanguageUnset {
		return LanguageEnglish
	}
	return l
}

// CitizenProfile holds the attributes extracted from speech or form input.
// All fields are strings on the wire; age and income are digit strings.
// Gender, occupation and state hold canonical keys once normalized.
type CitizenProfile struct {
	Age        string `json:"age"`
	Gender     string `json:"gender"`
	Occupation string `json:"occupation"`
	Income     string `json:"income"`
	State      string `json:"state"`
}

func (p CitizenProfile) IsEmpty() bool {
	return p.Age == "" && p.Gender == "" && p.Occupation == "" && p.Income == "" && p.State == ""
}

// ExtractionResult reports which extraction path produced the profile.
type ExtractionResult struct {
	Profile  CitizenProfile `json:"profile"`
	Fallback bool           `json:"fallback"`
}
