package sending

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys. Each key is also the English text.
const (
	// MsgNotEnoughMoney is shown for KindInsufficientFunds.
	MsgNotEnoughMoney = "Not enough money to send this amount"

	// MsgNoSuchPocket is shown for KindNoSuchPocket.
	MsgNoSuchPocket = "This wallet has no pocket for the coin"

	// MsgPasswordFailed is shown for KindSigningCredential.
	MsgPasswordFailed = "Password failed"

	// MsgNetworkError is shown for KindNetwork.
	MsgNetworkError = "Network error, could not send"

	// MsgSent is shown after a successful send.
	MsgSent = "Sent!"

	// MsgURIError is shown when a scanned payload cannot be resolved. It
	// takes the resolver's message.
	MsgURIError = "Could not read payment request: %s"

	// MsgInvalidAddress is shown on confirm when the address text does
	// not decode.
	MsgInvalidAddress = "Invalid address"

	// MsgDustAmount is shown when the amount is too small to be relayed.
	MsgDustAmount = "Amount is too small to send"

	// MsgBuildFailed is shown when the wallet could not prepare a
	// request for any other reason.
	MsgBuildFailed = "Could not prepare the payment"
)

// messageKeys lists every template.
var messageKeys = []string{
	MsgNotEnoughMoney, MsgNoSuchPocket, MsgPasswordFailed, MsgNetworkError,
	MsgSent, MsgURIError, MsgInvalidAddress, MsgDustAmount, MsgBuildFailed,
}

// kindMessages holds the single template of every recoverable kind.
var kindMessages = map[ErrorKind]string{
	KindInsufficientFunds: MsgNotEnoughMoney,
	KindNoSuchPocket:      MsgNoSuchPocket,
	KindSigningCredential: MsgPasswordFailed,
	KindNetwork:           MsgNetworkError,
}

// MessageForKind returns the template for kind. KindUnknownFatal has none.
func MessageForKind(kind ErrorKind) (string, bool) {
	msg, ok := kindMessages[kind]
	return msg, ok
}

var translations = map[language.Tag]map[string]string{
	language.German: {
		MsgNotEnoughMoney: "Nicht genug Guthaben für diesen Betrag",
		MsgNoSuchPocket:   "Diese Wallet hat kein Konto für die Münze",
		MsgPasswordFailed: "Passwort falsch",
		MsgNetworkError:   "Netzwerkfehler, Senden fehlgeschlagen",
		MsgSent:           "Gesendet!",
		MsgURIError:       "Zahlungsanforderung nicht lesbar: %s",
		MsgInvalidAddress: "Ungültige Adresse",
		MsgDustAmount:     "Betrag ist zu klein zum Senden",
		MsgBuildFailed:    "Zahlung konnte nicht vorbereitet werden",
	},
}

// SupportedLanguages lists the languages messages are available in.
var SupportedLanguages = []language.Tag{language.English, language.German}

func newCatalog(texts map[language.Tag]map[string]string) (
	catalog.Catalog, error) {

	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for _, key := range messageKeys {
		if err := b.SetString(language.English, key, key); err != nil {
			return nil, fmt.Errorf("template %q: %w", key, err)
		}
	}

	for tag, msgs := range texts {
		for key, msg := range msgs {
			if err := b.SetString(tag, key, msg); err != nil {
				return nil, fmt.Errorf("%v template %q: %w", tag,
					key, err)
			}
		}
	}

	return b, nil
}

// Messages renders message templates in one language.
type Messages struct {
	printer *message.Printer
}

// NewMessages returns messages for the closest supported match of lang,
// e.g. "de-AT" or "en".
func NewMessages(lang string) (*Messages, error) {
	cat, err := newCatalog(translations)
	if err != nil {
		return nil, fmt.Errorf("unable to build message catalog: %w",
			err)
	}

	matcher := language.NewMatcher(SupportedLanguages)
	_, idx := language.MatchStrings(matcher, lang)
	tag := SupportedLanguages[idx]

	return &Messages{
		printer: message.NewPrinter(tag, message.Catalog(cat)),
	}, nil
}

// Text renders a template.
func (m *Messages) Text(key string, args ...interface{}) string {
	return m.printer.Sprintf(key, args...)
}
