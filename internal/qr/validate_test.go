package qr

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ilocks/server/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validateCommand(t *testing.T, cmd CreateCommand) validation.Errors {
	t.Helper()
	v, err := validation.New()
	require.NoError(t, err)
	require.NoError(t, RegisterMessages(v))

	cmd.Normalize()
	err = v.Validate(cmd)
	if err == nil {
		return nil
	}
	var fieldErrs validation.Errors
	require.True(t, errors.As(err, &fieldErrs), "unexpected error type: %v", err)
	return fieldErrs
}

func TestCreateCommand_Valid(t *testing.T) {
	cmd := validCommand(time.Now())
	cmd.DataType = "booking_access"
	assert.Empty(t, validateCommand(t, cmd))
}

func TestCreateCommand_Rules(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name   string
		mutate func(*CreateCommand)
		field  string
	}{
		{"check-in after check-out", func(c *CreateCommand) { c.CheckInAt = c.CheckOutAt.Add(time.Hour) }, "checkInAt"},
		{"check-in equals check-out", func(c *CreateCommand) { c.CheckInAt = c.CheckOutAt }, "checkInAt"},
		{"check-out in the past", func(c *CreateCommand) {
			c.CheckInAt = now.Add(-48 * time.Hour)
			c.CheckOutAt = now.Add(-time.Hour)
		}, "checkOutAt"},
		{"no guests", func(c *CreateCommand) { c.GuestsCount = 0 }, "guestsCount"},
		{"too many guests", func(c *CreateCommand) { c.GuestsCount = 51 }, "guestsCount"},
		{"blank password", func(c *CreateCommand) { c.DoorPassword = "   " }, "doorPassword"},
		{"long password", func(c *CreateCommand) { c.DoorPassword = strings.Repeat("p", 129) }, "doorPassword"},
		{"blank data type", func(c *CreateCommand) { c.DataType = "" }, "dataType"},
		{"long data type", func(c *CreateCommand) { c.DataType = strings.Repeat("d", 65) }, "dataType"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := validCommand(now)
			cmd.DataType = "booking_access"
			tt.mutate(&cmd)
			errs := validateCommand(t, cmd)
			assert.Contains(t, errs, tt.field)
		})
	}
}

func TestCreateCommand_Boundaries(t *testing.T) {
	cmd := validCommand(time.Now())
	cmd.DataType = strings.Repeat("d", 64)
	cmd.DoorPassword = strings.Repeat("p", 128)
	cmd.GuestsCount = 50
	assert.Empty(t, validateCommand(t, cmd))

	cmd.GuestsCount = 1
	assert.Empty(t, validateCommand(t, cmd))
}

func TestCreateCommand_BookingMessages(t *testing.T) {
	now := time.Now()
	cmd := validCommand(now)
	cmd.DataType = "booking_access"
	cmd.CheckInAt = now.Add(-3 * time.Hour)
	cmd.CheckOutAt = now.Add(-4 * time.Hour)

	errs := validateCommand(t, cmd)
	assert.Equal(t, "checkInAt must be earlier than checkOutAt", errs["checkInAt"])
	assert.Equal(t, "checkOutAt must be in the future", errs["checkOutAt"])
}
