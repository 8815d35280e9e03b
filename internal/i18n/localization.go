package i18n

import (
	"fmt"
	"strings"
)

// Localization manages bot text translations
type Localization struct {
	currentLanguage string
	texts           map[string]map[string]string
}

// Supported languages
const (
	LanguageEnglish        = "en"
	LanguageCentralKurdish = "ckb"
	LanguageSystem         = "system"
)

// Text keys for localization
const (
	KeyGreeting          = "greeting"
	KeyUsage             = "usage"
	KeyFetchingQualities = "fetching_qualities"
	KeyChooseQuality     = "choose_quality"
	KeyNoFormats         = "no_formats"
	KeyUpstreamError     = "upstream_error"
	KeyMalformedChoice   = "malformed_choice"
	KeyExpiredChoice     = "expired_choice"
	KeyProcessing        = "processing"
	KeyAlreadyProcessing = "already_processing"
	KeyReady             = "ready"
	KeyRetentionNotice   = "retention_notice"
	KeyDownloadButton    = "download_button"
	KeyDownloadFailed    = "download_failed"
	KeyPlaylistChoose    = "playlist_choose"
	KeyPlaylistError     = "playlist_error"
)

// NewLocalization creates a new localization manager
func NewLocalization() *Localization {
	l := &Localization{
		currentLanguage: LanguageEnglish,
		texts:           make(map[string]map[string]string),
	}

	l.initializeTexts()
	return l
}

// SetLanguage sets the current language. Unknown languages are ignored.
func (l *Localization) SetLanguage(lang string) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == LanguageSystem || lang == "" {
		lang = LanguageEnglish
	}

	if _, exists := l.texts[lang]; exists {
		l.currentLanguage = lang
	}
}

// GetText returns localized text for the given key
func (l *Localization) GetText(key string) string {
	if texts, exists := l.texts[l.currentLanguage]; exists {
		if text, found := texts[key]; found {
			return text
		}
	}

	// Fallback to English
	if texts, exists := l.texts[LanguageEnglish]; exists {
		if text, found := texts[key]; found {
			return text
		}
	}

	// Final fallback - return key itself
	return key
}

// Format returns the localized text for key with args substituted
func (l *Localization) Format(key string, args ...any) string {
	return fmt.Sprintf(l.GetText(key), args...)
}

// GetCurrentLanguage returns the current language code
func (l *Localization) GetCurrentLanguage() string {
	return l.currentLanguage
}

// GetAvailableLanguages returns map of available languages with their display names
func (l *Localization) GetAvailableLanguages() map[string]string {
	return map[string]string{
		LanguageEnglish:        "English",
		LanguageCentralKurdish: "کوردی",
	}
}

// initializeTexts initializes all text translations
func (l *Localization) initializeTexts() {
	// English texts
	l.texts[LanguageEnglish] = map[string]string{
		KeyGreeting:          "Hi %s! Send me a YouTube link and I will offer the available qualities.",
		KeyUsage:             "Send me a YouTube video or playlist link (https://youtube.com/watch?v=...).",
		KeyFetchingQualities: "Fetching available qualities...",
		KeyChooseQuality:     "Please choose a quality for '%s':",
		KeyNoFormats:         "Sorry, I couldn't find any downloadable %s video formats.",
		KeyUpstreamError:     "An error occurred while fetching formats. The link might be invalid or private.",
		KeyMalformedChoice:   "Sorry, I could not read that choice. Please send the link again.",
		KeyExpiredChoice:     "That choice is no longer available. Please send the link again.",
		KeyProcessing:        "Great choice! Processing %s download...",
		KeyAlreadyProcessing: "Already processing this video, please wait.",
		KeyReady:             "'%s' is ready!\n\nClick the button below to download:\n%s",
		KeyRetentionNotice:   "Please note that this link expires in %d minutes.",
		KeyDownloadButton:    "✅ Download Video",
		KeyDownloadFailed:    "An error occurred during the download process.",
		KeyPlaylistChoose:    "Playlist '%s', %d videos listed. Choose a video:",
		KeyPlaylistError:     "An error occurred while reading the playlist.",
	}

	// Central Kurdish texts
	l.texts[LanguageCentralKurdish] = map[string]string{
		KeyGreeting:          "سڵاو %s! لینکی یوتیوبەکەت بنێرە بۆ داگرتن.",
		KeyFetchingQualities: "پشاندانی کوالیتیەکان...",
		KeyChooseQuality:     "تکایە کوالێتییەک هەڵبژێرە بۆ '%s':",
		KeyNoFormats:         "ببورە، من هیچ فۆرماتی داگرتنی ڤیدیۆی %s بۆ ئەم لینکه نابینم، تکایە لینکەکە با دروستی بنێرە.",
		KeyProcessing:        "داگرتنی ڤیدیۆیەکە بە کوالێتی %s دەستپێدەکات...تکایە چاوەڕوان بە.",
		KeyReady:             "'%s' ئامادەیە بۆ داگرتن!\n\nگرتە بکە لەم لینکەی خوارەوە بۆ داگرتنی ڤیدیۆ:\n%s",
		KeyRetentionNotice:   "تکایە ئاگادار بە کە ئەم لینکە لە %d خولەکدا بەسەردەچێت",
		KeyDownloadButton:    "✅ داگرتنی ڤیدیۆ",
	}
}
