package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "79*******67", MaskPhone("79991234567"))
	assert.Equal(t, "****", MaskPhone("1234"))
	assert.Equal(t, "****", MaskPhone(""))
}

func TestNew_WritesJSONWithServiceFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "ilocks-api", "production")

	logger.Debug("hidden")
	logger.Info("otp requested", "phone", MaskPhone("79991234567"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "otp requested", entry["msg"])
	assert.Equal(t, "ilocks-api", entry["service"])
	assert.Equal(t, "production", entry["environment"])
	assert.Equal(t, "79*******67", entry["phone"])
}
