package qr

import "github.com/ilocks/server/internal/validation"

// RegisterMessages replaces the generic comparison messages used by CreateCommand
// with booking wording.
func RegisterMessages(v *validation.Validator) error {
	if err := v.RegisterMessage("ltfield", "{0} must be earlier than checkOutAt"); err != nil {
		return err
	}
	return v.RegisterMessage("gt", "{0} must be in the future")
}
