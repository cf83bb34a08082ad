package errors

import (
	sterrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectionError(t *testing.T) {
	cause := sterrors.New("dial tcp: connection refused")
	err := NewConnectionError(cause)

	assert.Contains(t, err.Error(), "failed to connect")
	assert.Contains(t, err.Error(), "connection refused")
	assert.ErrorIs(t, err, cause)

	var connErr *ConnectionError
	assert.ErrorAs(t, err, &connErr)
	assert.Equal(t, cause, connErr.Cause)
}

func TestPayloadTooLargeError(t *testing.T) {
	err := &PayloadTooLargeError{Size: 200, Limit: 100}

	assert.Contains(t, err.Error(), "200")
	assert.Contains(t, err.Error(), "100")

	var sizeErr *PayloadTooLargeError
	assert.ErrorAs(t, error(err), &sizeErr)
	assert.Equal(t, 200, sizeErr.Size)
	assert.Equal(t, 100, sizeErr.Limit)
}
