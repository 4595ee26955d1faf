package flood

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedLanguage is returned for language codes outside en, mr and hi.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// BMCHelpline is the municipal disaster helpline quoted in HIGH alerts.
const BMCHelpline = "1916"

// Language identifies one of the supported alert languages. The zero value is English.
type Language int

const (
	LangEnglish Language = iota
	LangMarathi
	LangHindi

	languageCount
)

var languageCodes = [languageCount]string{
	LangEnglish: "en",
	LangMarathi: "mr",
	LangHindi:   "hi",
}

var languageNames = [languageCount]string{
	LangEnglish: "English",
	LangMarathi: "मराठी",
	LangHindi:   "हिन्दी",
}

// AlertCatalog holds one warning per language and risk level.
type AlertCatalog [languageCount][riskLevelCount]string

var catalog = AlertCatalog{
	LangEnglish: {
		RiskHigh:   "🚨 Flood Alert! Evacuate low-lying areas immediately. Contact BMC: 1916",
		RiskMedium: "⚠️ Advisory: Possible flooding in your area. Stay alert.",
		RiskLow:    "ℹ️ Normal conditions: Monitor BMC updates",
	},
	LangMarathi: {
		RiskHigh:   "🚨 पूर चेतावनी! कमी उंचीच्या भागातून लगेच बाहेर पडा. BMC क्रमांक: १९१६",
		RiskMedium: "⚠️ सूचना: तुमच्या क्षेत्रात पुराची शक्यता. सजग रहा.",
		RiskLow:    "ℹ️ सामान्य परिस्थिती: BMC अद्ययावत तपासत रहा",
	},
	LangHindi: {
		RiskHigh:   "🚨 बाढ़ चेतावनी! निचले इलाकों से तुरंत बाहर निकलें। BMC नंबर: १९१६",
		RiskMedium: "⚠️ सलाह: आपके क्षेत्र में बाढ़ की संभावना। सतर्क रहें।",
		RiskLow:    "ℹ️ सामान्य स्थिति: BMC अपडेट की निगरानी करें",
	},
}

// Languages returns the supported languages in display order.
func Languages() []Language {
	return []Language{LangEnglish, LangMarathi, LangHindi}
}

// ParseLanguage resolves a code such as "mr". Matching ignores case and surrounding space.
func ParseLanguage(code string) (Language, error) {
	c := strings.ToLower(strings.TrimSpace(code))
	for i, lc := range languageCodes {
		if lc == c {
			return Language(i), nil
		}
	}
	return LangEnglish, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, code)
}

func (l Language) Valid() bool {
	return l >= LangEnglish && l < languageCount
}

// Code returns the two-letter language code.
func (l Language) Code() string {
	if !l.Valid() {
		return ""
	}
	return languageCodes[l]
}

// DisplayName returns the language name written in that language.
func (l Language) DisplayName() string {
	if !l.Valid() {
		return ""
	}
	return languageNames[l]
}

func (l Language) String() string {
	if !l.Valid() {
		return fmt.Sprintf("Language(%d)", int(l))
	}
	return languageCodes[l]
}

func (l Language) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedLanguage, int(l))
	}
	return []byte(languageCodes[l]), nil
}

func (l *Language) UnmarshalText(text []byte) error {
	lang, err := ParseLanguage(string(text))
	if err != nil {
		return err
	}
	*l = lang
	return nil
}

// Catalog returns a copy of the alert table.
func Catalog() AlertCatalog {
	return catalog
}

// Localize returns the warning for risk in lang.
func Localize(risk RiskLevel, lang Language) (string, error) {
	if !lang.Valid() {
		return "", fmt.Errorf("%w: %d", ErrUnsupportedLanguage, int(lang))
	}
	if !risk.Valid() {
		return "", fmt.Errorf("%w: %d", ErrUnknownRiskLevel, int(risk))
	}
	return catalog[lang][risk], nil
}

// LocalizeCode is Localize for a raw language code.
func LocalizeCode(risk RiskLevel, code string) (string, error) {
	lang, err := ParseLanguage(code)
	if err != nil {
		return "", err
	}
	return Localize(risk, lang)
}

// LocalizeOrDefault resolves code and falls back to fallback when the code is not
// supported. It returns the warning and the language actually used.
func LocalizeOrDefault(risk RiskLevel, code string, fallback Language) (string, Language) {
	lang, err := ParseLanguage(code)
	if err != nil {
		lang = fallback
	}
	if !lang.Valid() {
		lang = LangEnglish
	}
	if !risk.Valid() {
		risk = RiskLow
	}
	return catalog[lang][risk], lang
}
