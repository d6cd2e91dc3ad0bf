package errs

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := MalformedHeaderf("header.Decode", "need %d bytes, got %d", 1024, 10)
	assert.Equal(t, "header.Decode: malformed header: need 1024 bytes, got 10", err.Error())

	err = IOf("mrcz.ReadFile", io.ErrUnexpectedEOF, "reading %s", "a.mrc")
	assert.Equal(t, "mrcz.ReadFile: i/o error: reading a.mrc: unexpected EOF", err.Error())

	err = &Error{Kind: Compression, Err: errors.New("bad block")}
	assert.Equal(t, "compression error: bad block", err.Error())
}

func TestKindMatching(t *testing.T) {
	err := fmt.Errorf("converting: %w", UnsupportedTypef("types", "mode %d", 7))

	assert.True(t, errors.Is(err, ErrUnsupportedType))
	assert.False(t, errors.Is(err, ErrIO))
	assert.True(t, Is(err, UnsupportedType))
	assert.Equal(t, UnsupportedType, KindOf(err))
	assert.Equal(t, Internal, KindOf(errors.New("plain")))
}

func TestWrapKeepsCause(t *testing.T) {
	assert.Nil(t, Wrap(IO, "op", nil, "nothing"))

	err := Wrap(IO, "stream.ReadRaw", io.ErrUnexpectedEOF, "slice %d", 3)
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.True(t, errors.Is(err, ErrIO))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "allocation error", Allocation.String())
	assert.Equal(t, "kind(42)", Kind(42).String())
}
