package sending

import (
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightninglabs/sendcoins/coins"
	"github.com/lightninglabs/sendcoins/payuri"
)

// AmountValid reports whether amount is present and strictly positive.
func AmountValid(amount *btcutil.Amount) bool {
	return amount != nil && *amount > 0
}

// Validator holds the target being entered and answers whether it is
// complete. It is not safe for concurrent use.
type Validator struct {
	coin *coins.CoinType

	addressText string
	address     btcutil.Address

	amountText string
	amount     *btcutil.Amount

	label string
}

// NewValidator creates a validator for the coin type.
func NewValidator(coin *coins.CoinType) *Validator {
	return &Validator{coin: coin}
}

// SetAddressText decodes manually entered address text. Text that does not
// decode clears the address without an error.
func (v *Validator) SetAddressText(text string) {
	v.addressText = text

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		v.address = nil
		v.label = ""
		return
	}

	addr, err := v.coin.DecodeAddress(trimmed)
	if err != nil {
		log.Tracef("Address text %q not decodable: %v", trimmed, err)
		v.address = nil
		v.label = ""
		return
	}

	// A label only belongs to the address it came with.
	if v.address == nil || v.address.String() != addr.String() {
		v.label = ""
	}
	v.address = addr
}

// SetAmountText parses manually entered amount text. Text that does not
// parse, or parses to zero or less, clears the amount without an error.
func (v *Validator) SetAmountText(text string) {
	v.amountText = text
	v.revalidateAmount()
}

// RevalidateAmount parses the current amount text again.
func (v *Validator) RevalidateAmount() {
	v.revalidateAmount()
}

func (v *Validator) revalidateAmount() {
	amount, err := v.coin.ParseAmount(v.amountText)
	if err != nil || !AmountValid(&amount) {
		v.amount = nil
		return
	}

	v.amount = &amount
}

// Apply accepts a resolved target. The target's amount replaces the current
// one only when it is itself valid.
func (v *Validator) Apply(target *payuri.PaymentTarget) {
	v.address = target.Address
	v.addressText = ""
	if target.Address != nil {
		v.addressText = target.Address.String()
	}
	v.label = target.Label

	if AmountValid(target.Amount) {
		amount := *target.Amount
		v.amount = &amount
		v.amountText = v.coin.FormatAmount(amount)
	}
}

// AddressValid reports whether a resolved address is present.
func (v *Validator) AddressValid() bool {
	return v.address != nil
}

// AmountValid reports whether the accepted amount is strictly positive.
func (v *Validator) AmountValid() bool {
	return AmountValid(v.amount)
}

// AddressTextInvalid reports whether non-empty address text failed to
// decode.
func (v *Validator) AddressTextInvalid() bool {
	return v.address == nil && strings.TrimSpace(v.addressText) != ""
}

// EverythingValid reports whether a send may be confirmed in state.
func (v *Validator) EverythingValid(state SendState) bool {
	return state == StateInput && v.AddressValid() && v.AmountValid()
}

// FocusFirst returns the first control needing attention: the address if
// it is invalid, then the amount, then the confirm control.
func (v *Validator) FocusFirst(state SendState) Field {
	switch {
	case !v.AddressValid():
		return FieldAddress

	case !v.AmountValid():
		return FieldAmount

	case v.EverythingValid(state):
		return FieldConfirm

	default:
		log.Warnf("Unclear focus in state %v", state)
		return FieldNone
	}
}

// Target returns a copy of the current target.
func (v *Validator) Target() *payuri.PaymentTarget {
	target := &payuri.PaymentTarget{
		Address: v.address,
		Label:   v.label,
	}
	if v.amount != nil {
		amount := *v.amount
		target.Amount = &amount
	}

	return target
}

// Fields returns the text the view should display.
func (v *Validator) Fields() (address, amount, label string) {
	return v.addressText, v.amountText, v.label
}

// Reset clears the target.
func (v *Validator) Reset() {
	*v = Validator{coin: v.coin}
}
