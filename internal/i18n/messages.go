package i18n

import "golang.org/x/text/language"

var messages = map[language.Tag]map[string]string{
	language.English: {
		KeyConfirmationExpired: "This confirmation link is invalid or has expired. Confirmation links are only valid for %s. Please start again.",
		KeyConfirmationError:   "Something went wrong while processing your confirmation. Please try the link again in a moment.",
		KeyRegistrationSuccess: "Welcome! Your registration is complete.",
		KeyRegistrationExists:  "This email address is already registered.",
		KeyEventJoinSuccess:    "You are now registered for \"%s\".",
		KeyEventJoinAlready:    "You are already registered for \"%s\".",
		KeyEventJoinUnknown:    "This event no longer exists.",
		KeyPasswordReset:       "Your password has been changed.",
		KeyPasswordResetFailed: "We could not find an account for this email address.",
		KeyRegistrationPrompt:  "Please confirm your email address to complete your registration.",
		KeyEventJoinPrompt:     "Please confirm your email address to join \"%s\".",
		KeyPasswordResetPrompt: "Please confirm that you want to change your password.",
	},
	language.German: {
		KeyConfirmationExpired: "Dieser Bestätigungslink ist ungültig oder abgelaufen. Bestätigungslinks sind nur %s gültig. Bitte starte den Vorgang erneut.",
		KeyConfirmationError:   "Bei der Verarbeitung deiner Bestätigung ist ein Fehler aufgetreten. Bitte versuche den Link gleich noch einmal.",
		KeyRegistrationSuccess: "Willkommen! Deine Registrierung ist abgeschlossen.",
		KeyRegistrationExists:  "Diese E-Mail-Adresse ist bereits registriert.",
		KeyEventJoinSuccess:    "Du bist jetzt für \"%s\" angemeldet.",
		KeyEventJoinAlready:    "Du bist bereits für \"%s\" angemeldet.",
		KeyEventJoinUnknown:    "Diese Veranstaltung existiert nicht mehr.",
		KeyPasswordReset:       "Dein Passwort wurde geändert.",
		KeyPasswordResetFailed: "Für diese E-Mail-Adresse wurde kein Konto gefunden.",
		KeyRegistrationPrompt:  "Bitte bestätige deine E-Mail-Adresse, um die Registrierung abzuschließen.",
		KeyEventJoinPrompt:     "Bitte bestätige deine E-Mail-Adresse, um dich für \"%s\" anzumelden.",
		KeyPasswordResetPrompt: "Bitte bestätige, dass du dein Passwort ändern möchtest.",
	},
}
