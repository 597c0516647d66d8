package utils

import "testing"

func TestDetermineLocale_QueryParamWins(t *testing.T) {
	got := DetermineLocale("en-GB", "de-CH,de;q=0.9,en;q=0.8", SupportedLocales, DefaultLocale)
	if got != "en" {
		t.Fatalf("want en, got %s", got)
	}
}

func TestDetermineLocale_AcceptLanguageOrder(t *testing.T) {
	got := DetermineLocale("", "de-CH,de;q=0.9,en;q=0.8", SupportedLocales, DefaultLocale)
	if got != "de" {
		t.Fatalf("want de, got %s", got)
	}
}

func TestDetermineLocale_AcceptLanguagePrefersHigherQ(t *testing.T) {
	got := DetermineLocale("", "de;q=0.5,en;q=0.8", SupportedLocales, DefaultLocale)
	if got != "en" {
		t.Fatalf("want en, got %s", got)
	}
}

func TestDetermineLocale_ZeroQIsExcluded(t *testing.T) {
	got := DetermineLocale("", "en;q=0,fr", SupportedLocales, DefaultLocale)
	if got != "de" {
		t.Fatalf("want de default, got %s", got)
	}
}

func TestDetermineLocale_DefaultFallback(t *testing.T) {
	got := DetermineLocale("", "fr-FR,es;q=0.9", SupportedLocales, DefaultLocale)
	if got != "de" {
		t.Fatalf("want de fallback, got %s", got)
	}
	got = DetermineLocale("", "", []string{"en"}, "xx")
	if got != "en" {
		t.Fatalf("want first supported, got %s", got)
	}
}
