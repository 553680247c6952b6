package model

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mailorder/internal/event"
)

func TestHistoryRoundTrip(t *testing.T) {
	hist := []StatusEntry{
		{Status: event.StatusShipped, At: "2025-08-11T00:00:00Z"},
		{Status: event.StatusOrdered, At: "2025-08-10T00:00:00Z"},
	}
	raw := EncodeHistory(hist)
	assert.NotEmpty(t, raw)
	assert.Equal(t, hist, DecodeHistory(raw))
}

func TestHistoryEmptyAndBad(t *testing.T) {
	assert.Equal(t, "", EncodeHistory(nil))
	assert.Nil(t, DecodeHistory(""))
	assert.Nil(t, DecodeHistory("not json"))
}
