package i18n

import "golang.org/x/text/language"

// fallbacks returns the tags that may stand in for tag, ordered by increasing
// generality: language-script-region, language-script, language.
func fallbacks(tag language.Tag) []language.Tag {
	var result []language.Tag
	lang, script, region := tag.Raw()
	// Raw reports ZZ for an unspecified region and Zzzz for an unspecified script.
	if region.String() != "ZZ" {
		t, _ := language.Compose(lang, script, region)
		result = append(result, t)
	}
	if script.String() != "Zzzz" {
		t, _ := language.Compose(lang, script)
		result = append(result, t)
	}
	t, _ := language.Compose(lang)
	return append(result, t)
}
