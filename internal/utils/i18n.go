package utils

import "fmt"

// Server-side message catalogue for feedback texts. German is the survey
// language; English is the fallback for unknown locales and keys.

// SupportedLocales lists the locales with a full catalogue.
var SupportedLocales = []string{"de", "en"}

// DefaultLocale is used when a request names no supported locale.
const DefaultLocale = "de"

var translations = map[string]map[string]string{
	"de": {
		"health.ok": "ok",

		"scale.optimism":   "Optimismus",
		"scale.skepticism": "Skepsis",

		"attitude.complex":   "Der Komplexe",
		"attitude.optimist":  "Der Optimist",
		"attitude.skeptic":   "Der Skeptiker",
		"attitude.undecided": "Der Unentschlossene",
		"attitude.balanced":  "Der Ausgewogene",
		"attitude.hopeful":   "Der Hoffnungsvolle",
		"attitude.cautious":  "Der Vorsichtige",
		"attitude.default":   "Ausgewogen",

		"extreme.optimism_high":   "Extrem optimistisch",
		"extreme.skepticism_high": "Extrem skeptisch",
		"extreme.optimism_low":    "Ungewöhnlich wenig optimistisch",
		"extreme.skepticism_low":  "Ungewöhnlich wenig skeptisch",

		"band.top":    "%s: Dein Wert liegt im obersten Viertel, %d%% der Teilnehmenden liegen darunter.",
		"band.upper":  "%s: Dein Wert liegt über dem Median, %d%% der Teilnehmenden liegen darunter.",
		"band.middle": "%s: Dein Wert liegt unter dem Median, %d%% der Teilnehmenden liegen darunter.",
		"band.lower":  "%s: Dein Wert liegt im untersten Viertel, %d%% der Teilnehmenden liegen darunter.",

		"effect.neutral":             "Kein ausgeprägter Zusammenhang mit deiner Berufserfahrung.",
		"effect.young-optimist":      "Junge Lehrperson mit optimistischem Blick auf KI.",
		"effect.experienced-skeptic": "Erfahrene Lehrperson mit kritischem Blick auf KI.",
		"effect.wise-optimist":       "Erfahrene Lehrperson mit optimistischem Blick auf KI.",

		"rarity.text": "%d%% aller Teilnehmenden haben eine ähnliche Haltung wie du.",
	},
	"en": {
		"health.ok": "ok",

		"scale.optimism":   "Optimism",
		"scale.skepticism": "Skepticism",

		"attitude.complex":   "The Complex Thinker",
		"attitude.optimist":  "The Optimist",
		"attitude.skeptic":   "The Skeptic",
		"attitude.undecided": "The Undecided",
		"attitude.balanced":  "The Balanced",
		"attitude.hopeful":   "The Hopeful",
		"attitude.cautious":  "The Cautious",
		"attitude.default":   "Balanced",

		"extreme.optimism_high":   "Extremely optimistic",
		"extreme.skepticism_high": "Extremely skeptical",
		"extreme.optimism_low":    "Unusually low optimism",
		"extreme.skepticism_low":  "Unusually low skepticism",

		"band.top":    "%s: your score is in the top quarter, %d%% of participants score lower.",
		"band.upper":  "%s: your score is above the median, %d%% of participants score lower.",
		"band.middle": "%s: your score is below the median, %d%% of participants score lower.",
		"band.lower":  "%s: your score is in the bottom quarter, %d%% of participants score lower.",

		"effect.neutral":             "No marked link with your teaching experience.",
		"effect.young-optimist":      "Early-career educator with an optimistic view of AI.",
		"effect.experienced-skeptic": "Experienced educator with a critical view of AI.",
		"effect.wise-optimist":       "Experienced educator with an optimistic view of AI.",

		"rarity.text": "%d%% of all participants share an attitude similar to yours.",
	},
}

// T returns the translated string for key in locale; falls back to English.
func T(locale, key string) string {
	if m, ok := translations[locale]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if m, ok := translations["en"]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return key
}

// Tf formats the translated string for key with args.
func Tf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}
