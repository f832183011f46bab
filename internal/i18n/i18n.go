// Package i18n negotiates request locales and renders the user-facing
// messages of the confirmation flows.
package i18n

import (
	"strings"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys.
const (
	KeyConfirmationExpired = "confirmation.expired"
	KeyConfirmationError   = "confirmation.error"
	KeyConfirmationTimeout = "confirmation.timeout"

	KeyRegistrationSuccess = "registration.success"
	KeyRegistrationExists  = "registration.exists"
	KeyEventJoinSuccess    = "event.join.success"
	KeyEventJoinAlready    = "event.join.already"
	KeyEventJoinUnknown    = "event.join.unknown"
	KeyPasswordReset       = "password.reset.success"
	KeyPasswordResetFailed = "password.reset.unknown"

	KeyRegistrationPrompt  = "registration.prompt"
	KeyEventJoinPrompt     = "event.join.prompt"
	KeyPasswordResetPrompt = "password.reset.prompt"
)

// Default is used when negotiation finds nothing better.
var Default = language.English

// Supported lists the languages with a full translation set, Default first.
var Supported = []language.Tag{language.English, language.German}

var matcher = language.NewMatcher(Supported)

// Match picks the best supported language for an explicit tag (e.g. a "lang"
// query parameter) and an Accept-Language header. The explicit tag wins when
// it parses; unparseable input is ignored.
func Match(explicit, acceptLanguage string) language.Tag {
	var wanted []language.Tag
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		if tag, err := language.Parse(explicit); err == nil {
			wanted = append(wanted, tag)
		}
	}
	if acceptLanguage != "" {
		if tags, _, err := language.ParseAcceptLanguage(acceptLanguage); err == nil {
			wanted = append(wanted, tags...)
		}
	}
	return Normalize(wanted...)
}

// Normalize maps arbitrary tags onto a member of Supported.
func Normalize(tags ...language.Tag) language.Tag {
	if len(tags) == 0 {
		return Default
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Default
	}
	return Supported[idx]
}

// Translator renders catalog messages for a locale.
type Translator struct {
	cat *catalog.Builder
}

// NewTranslator builds the message catalog.
func NewTranslator() *Translator {
	b := catalog.NewBuilder(catalog.Fallback(Default))
	for tag, msgs := range messages {
		for key, msg := range msgs {
			// Keys and messages are static; a failure here is a programming error.
			if err := b.SetString(tag, key, msg); err != nil {
				panic("i18n: " + err.Error())
			}
		}
	}
	mustSet(b, language.English, KeyConfirmationTimeout,
		plural.Selectf(1, "%d", plural.One, "%d minute", plural.Other, "%d minutes"))
	mustSet(b, language.German, KeyConfirmationTimeout,
		plural.Selectf(1, "%d", plural.One, "%d Minute", plural.Other, "%d Minuten"))
	return &Translator{cat: b}
}

func mustSet(b *catalog.Builder, tag language.Tag, key string, msg catalog.Message) {
	if err := b.Set(tag, key, msg); err != nil {
		panic("i18n: " + err.Error())
	}
}

// Translate renders key for locale. Unsupported locales fall back to Default.
func (t *Translator) Translate(locale language.Tag, key string, args ...any) string {
	p := message.NewPrinter(Normalize(locale), message.Catalog(t.cat))
	return p.Sprintf(key, args...)
}

// Timeout renders the "N minutes" fragment used in mails and expiry messages.
func (t *Translator) Timeout(locale language.Tag, minutes int) string {
	return t.Translate(locale, KeyConfirmationTimeout, minutes)
}
