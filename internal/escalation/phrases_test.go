package escalation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsConfirmation(t *testing.T) {
	assert.True(t, IsConfirmation("I'm OK"))
	assert.True(t, IsConfirmation("  yes, all good here  "))
	assert.True(t, IsConfirmation("I am fine, thank you"))

	assert.False(t, IsConfirmation(""))
	assert.False(t, IsConfirmation("what time is it"))
}

func TestIsDistress(t *testing.T) {
	assert.True(t, IsDistress("HELP ME"))
	assert.True(t, IsDistress("please call 911"))
	assert.True(t, IsDistress("i can't get up"))

	assert.False(t, IsDistress(""))
	assert.False(t, IsDistress("i'm okay"))
}
