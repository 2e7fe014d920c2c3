package loader

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/language"
)

type cacheKey struct {
	sourceID string
	language string
}

func newCacheKey(sourceID, lang string) cacheKey {
	return cacheKey{
		sourceID: strings.TrimSpace(sourceID),
		language: NormalizeLanguage(lang),
	}
}

func (k cacheKey) String() string {
	return k.sourceID + "\x00" + k.language
}

// NormalizeLanguage canonicalizes a BCP 47 tag ("EN" -> "en",
// "pt-br" -> "pt-BR"). Values that are not valid tags are lower-cased.
func NormalizeLanguage(lang string) string {
	lang = strings.TrimSpace(lang)
	if lang == "" {
		return ""
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return strings.ToLower(lang)
	}
	return tag.String()
}

func isRemote(sourceID string) bool {
	lower := strings.ToLower(sourceID)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// candidate caption paths in lookup order: language-tagged names
// ("movie.en.srt") before plain ones ("movie.srt"), each in extension
// priority order. A source that is itself a caption file comes first.
func candidatePaths(key cacheKey, extensions []string) []string {
	if key.sourceID == "" || isRemote(key.sourceID) {
		return nil
	}

	var paths []string
	ext := strings.ToLower(filepath.Ext(key.sourceID))
	for _, e := range extensions {
		if strings.EqualFold(e, ext) {
			paths = append(paths, key.sourceID)
			break
		}
	}

	base := strings.TrimSuffix(key.sourceID, filepath.Ext(key.sourceID))
	if key.language != "" {
		for _, e := range extensions {
			paths = append(paths, base+"."+key.language+e)
		}
	}
	for _, e := range extensions {
		if p := base + e; p != key.sourceID {
			paths = append(paths, p)
		}
	}

	return paths
}
