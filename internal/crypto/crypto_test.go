package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSealOpenRoundTrip(t *testing.T) {
	key := bytes.Repeat([]byte{7}, KeySize)
	s, err := New(key)
	assert.NoError(t, err)

	sealed, err := s.Seal("hunter2")
	assert.NoError(t, err)
	assert.NotContains(t, sealed, "hunter2")

	plain, err := s.Open(sealed)
	assert.NoError(t, err)
	assert.Equal(t, "hunter2", plain)
}

func TestSealIsRandomized(t *testing.T) {
	s, err := New(bytes.Repeat([]byte{7}, KeySize))
	assert.NoError(t, err)

	a, err := s.Seal("same")
	assert.NoError(t, err)
	b, err := s.Seal("same")
	assert.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestOpenRejectsTamperedValue(t *testing.T) {
	s, err := New(bytes.Repeat([]byte{7}, KeySize))
	assert.NoError(t, err)

	sealed, err := s.Seal("secret")
	assert.NoError(t, err)

	_, err = s.Open("x" + sealed[1:])
	assert.Error(t, err)

	_, err = s.Open("short")
	assert.Error(t, err)
}

func TestNewRejectsBadKey(t *testing.T) {
	_, err := New([]byte("too short"))
	assert.Error(t, err)
}
