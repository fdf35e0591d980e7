package xmlapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestFloatify covers the value conversions: numerics, booleans, and the
// fallback to zero for everything the XML-API reports that is not a
// number (party dates, IP addresses, empty values).
func TestFloatify(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  float64
	}{
		{"float", "21.500000", 21.5},
		{"negative int", "-68", -68},
		{"zero", "0", 0},
		{"bool true", "true", 1},
		{"bool false", "false", 0},
		{"empty", "", 0},
		{"whitespace", "  1.5 ", 1.5},
		{"party date", "00:00 01.01.2000", 0},
		{"ip address", "192.168.1.2", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Floatify(tt.value))
		})
	}
}

// TestDatapoint_Float verifies the convenience accessor.
func TestDatapoint_Float(t *testing.T) {
	d := Datapoint{Value: "0.35"}
	assert.Equal(t, 0.35, d.Float())
}
