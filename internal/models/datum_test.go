package models

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLogInfoKeyFormat(t *testing.T) {
	at := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)
	key := LogInfoKey(at)

	assert.Regexp(t, regexp.MustCompile(`^Log_Info_20240101103000_[0-9a-f]{8}$`), key)
}

func TestErrorKeyFormat(t *testing.T) {
	at := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)
	key := ErrorKey(at)

	assert.Regexp(t, regexp.MustCompile(`^Error_20240101103000_[0-9a-f]{8}$`), key)
}

// Two rows logged within the same second must not collide.
func TestKeysAreUniqueWithinOneSecond(t *testing.T) {
	at := time.Now()
	assert.NotEqual(t, LogInfoKey(at), LogInfoKey(at))
}
