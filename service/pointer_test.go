package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValue(t *testing.T) {
	limit := 25
	assert.Equal(t, 25, Value(&limit))

	ttl := 90 * time.Second
	assert.Equal(t, 90*time.Second, Value(&ttl))
}

func TestValue_Absent(t *testing.T) {
	assert.Equal(t, 0, Value[int](nil))
	assert.Equal(t, "", Value[string](nil))
}
