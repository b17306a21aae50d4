package language

import (
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Language is a target or source language accepted on the command line.
type Language struct {
	Code string
	Name string
}

var supported = []Language{
	{Code: "en", Name: "English"},
	{Code: "el", Name: "Greek"},
	{Code: "zh", Name: "Simplified Chinese"},
	{Code: "zh-hant", Name: "Traditional Chinese"},
	{Code: "es", Name: "Spanish"},
	{Code: "de", Name: "German"},
	{Code: "pt-br", Name: "Portuguese (Brazil)"},
	{Code: "pt-pt", Name: "Portuguese (Portugal)"},
	{Code: "fr", Name: "French"},
	{Code: "ja", Name: "Japanese"},
	{Code: "ko", Name: "Korean"},
	{Code: "ru", Name: "Russian"},
	{Code: "it", Name: "Italian"},
	{Code: "ar", Name: "Arabic"},
	{Code: "vi", Name: "Vietnamese"},
	{Code: "hi", Name: "Hindi"},
	{Code: "id", Name: "Indonesian"},
	{Code: "yue", Name: "Cantonese"},
	{Code: "nl", Name: "Dutch"},
	{Code: "sv", Name: "Swedish"},
	{Code: "da", Name: "Danish"},
	{Code: "nb", Name: "Norwegian"},
	{Code: "is", Name: "Icelandic"},
	{Code: "af", Name: "Afrikaans"},
	{Code: "ro", Name: "Romanian"},
	{Code: "ca", Name: "Catalan"},
	{Code: "uk", Name: "Ukrainian"},
	{Code: "pl", Name: "Polish"},
	{Code: "cs", Name: "Czech"},
	{Code: "sk", Name: "Slovak"},
	{Code: "bg", Name: "Bulgarian"},
	{Code: "sr", Name: "Serbian"},
	{Code: "hr", Name: "Croatian"},
	{Code: "bs", Name: "Bosnian"},
	{Code: "sl", Name: "Slovenian"},
	{Code: "mk", Name: "Macedonian"},
	{Code: "be", Name: "Belarusian"},
	{Code: "hu", Name: "Hungarian"},
	{Code: "fi", Name: "Finnish"},
	{Code: "lt", Name: "Lithuanian"},
	{Code: "lv", Name: "Latvian"},
	{Code: "et", Name: "Estonian"},
	{Code: "sq", Name: "Albanian"},
	{Code: "mt", Name: "Maltese"},
	{Code: "hy", Name: "Armenian"},
	{Code: "ka", Name: "Georgian"},
	{Code: "tr", Name: "Turkish"},
	{Code: "he", Name: "Hebrew"},
	{Code: "fa", Name: "Persian"},
	{Code: "ur", Name: "Urdu"},
	{Code: "uz", Name: "Uzbek"},
	{Code: "kk", Name: "Kazakh"},
	{Code: "ky", Name: "Kyrgyz"},
	{Code: "tk", Name: "Turkmen"},
	{Code: "az", Name: "Azerbaijani"},
	{Code: "tg", Name: "Tajik"},
	{Code: "mn", Name: "Mongolian"},
	{Code: "bn", Name: "Bengali"},
	{Code: "mr", Name: "Marathi"},
	{Code: "ta", Name: "Tamil"},
	{Code: "te", Name: "Telugu"},
	{Code: "gu", Name: "Gujarati"},
	{Code: "kn", Name: "Kannada"},
	{Code: "ml", Name: "Malayalam"},
	{Code: "pa", Name: "Punjabi"},
	{Code: "ne", Name: "Nepali"},
	{Code: "bho", Name: "Bhojpuri"},
	{Code: "th", Name: "Thai"},
	{Code: "lo", Name: "Lao"},
	{Code: "my", Name: "Burmese"},
	{Code: "ms", Name: "Malay"},
	{Code: "fil", Name: "Filipino (Tagalog)"},
	{Code: "jv", Name: "Javanese"},
	{Code: "sw", Name: "Swahili"},
	{Code: "ha", Name: "Hausa"},
	{Code: "am", Name: "Amharic"},
	{Code: "ug", Name: "Uyghur"},
}

// All returns the supported languages in their canonical order.
func All() []Language {
	out := make([]Language, len(supported))
	copy(out, supported)
	return out
}

// Except returns every supported language but code.
func Except(code string) []Language {
	out := make([]Language, 0, len(supported))
	for _, l := range supported {
		if strings.EqualFold(l.Code, code) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// Resolve finds a supported language by code or English name, ignoring case.
// Anything else is parsed as a BCP 47 tag and matched on its canonical form,
// so "iw" finds Hebrew and "de-AT" finds German.
func Resolve(input string) (Language, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return Language{}, false
	}
	for _, l := range supported {
		if strings.EqualFold(l.Code, input) || strings.EqualFold(l.Name, input) {
			return l, true
		}
	}

	tag, err := language.Parse(input)
	if err != nil {
		return Language{}, false
	}
	canonical := strings.ToLower(tag.String())
	for _, l := range supported {
		if l.Code == canonical {
			return l, true
		}
	}

	base, _ := tag.Base()
	for _, l := range supported {
		if l.Code == base.String() {
			return l, true
		}
	}
	return Language{}, false
}

// Tag is the BCP 47 form of the code.
func (l Language) Tag() language.Tag {
	tag, err := language.Parse(l.Code)
	if err != nil {
		return language.Und
	}
	return tag
}

// NativeName is the language's own name for itself, or "" when unknown.
func (l Language) NativeName() string {
	tag := l.Tag()
	if tag == language.Und {
		return ""
	}
	return display.Self.Name(tag)
}

func (l Language) String() string {
	return l.Name + " (" + l.Code + ")"
}

// Available lists every supported language as "Name (code)", for error messages.
func Available() string {
	parts := make([]string, 0, len(supported))
	for _, l := range supported {
		parts = append(parts, l.String())
	}
	return strings.Join(parts, ", ")
}

// Codes returns the supported codes sorted.
func Codes() []string {
	codes := make([]string, 0, len(supported))
	for _, l := range supported {
		codes = append(codes, l.Code)
	}
	sort.Strings(codes)
	return codes
}
