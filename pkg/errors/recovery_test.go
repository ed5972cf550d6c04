package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFoldPanicking(prev error, value interface{}) (err error) {
	defer Recover(&err, "Writer.WriteFold")
	err = prev
	panic(value)
}

func TestRecoverTurnsPanicIntoError(t *testing.T) {
	err := writeFoldPanicking(nil, "dataset index out of range")

	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "Writer.WriteFold", panicErr.Operation)
	assert.Equal(t, "dataset index out of range", panicErr.PanicValue)
	assert.NotEmpty(t, panicErr.StackTrace)
	assert.Equal(t, "panic in Writer.WriteFold: dataset index out of range", err.Error())
	assert.Contains(t, panicErr.String(), "Stack trace:")
}

func TestRecoverKeepsEarlierError(t *testing.T) {
	prev := NewIOError("write dataset /fold_0/met", "train.h5", fmt.Errorf("disk full"))

	err := writeFoldPanicking(prev, "closed writer")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in Writer.WriteFold: closed writer")
	assert.True(t, Is(err, prev))

	var ioErr *IOError
	assert.ErrorAs(t, err, &ioErr)
}

func TestRecoverWithoutPanic(t *testing.T) {
	fn := func() (err error) {
		defer Recover(&err, "Writer.Commit")
		return nil
	}
	assert.NoError(t, fn())
}

func TestPanicErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("superblock write failed")
	assert.True(t, Is(NewPanicError("Writer.Commit", cause), cause))
	assert.Nil(t, NewPanicError("Writer.Commit", 42).Unwrap())
}

func TestSafeExecute(t *testing.T) {
	closeErr := fmt.Errorf("file already closed")

	tests := []struct {
		name      string
		fn        func() error
		wantErr   error
		wantPanic bool
	}{
		{"clean close", func() error { return nil }, nil, false},
		{"close error passes through", func() error { return closeErr }, closeErr, false},
		{"panic in close", func() error { panic("nil superblock") }, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SafeExecute("hdf5 close train.h5", tt.fn)
			switch {
			case tt.wantPanic:
				var panicErr *PanicError
				require.ErrorAs(t, err, &panicErr)
				assert.Equal(t, "hdf5 close train.h5", panicErr.Operation)
			case tt.wantErr != nil:
				assert.Same(t, tt.wantErr, err)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func BenchmarkSafeExecute(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = SafeExecute("Writer.Commit", func() error { return nil })
	}
}
