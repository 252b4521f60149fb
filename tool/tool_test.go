package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryDispatch(t *testing.T) {
	r := NewRegistry()
	r.Register(NewFuncTool("echo", "Echo the input back.", func(ctx context.Context, input string) (string, error) {
		return "echo: " + input, nil
	}))

	out, err := r.Dispatch(context.Background(), "echo", "hi")
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", out)
}

func TestRegistryDispatchUnknownTool(t *testing.T) {
	r := NewRegistry()

	_, err := r.Dispatch(context.Background(), "nope", "x")
	require.Error(t, err)

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "nope", nf.Name)
}

func TestRegistryLastRegistrationWins(t *testing.T) {
	r := NewRegistry()
	r.Register(NewFuncTool("dup", "first", func(ctx context.Context, input string) (string, error) {
		return "first", nil
	}))
	r.Register(NewFuncTool("dup", "second", func(ctx context.Context, input string) (string, error) {
		return "second", nil
	}))

	assert.Equal(t, 1, r.Len())
	out, err := r.Dispatch(context.Background(), "dup", "")
	require.NoError(t, err)
	assert.Equal(t, "second", out)
}

func TestRegistryDoesNotSwallowToolErrors(t *testing.T) {
	boom := errors.New("network down")
	r := NewRegistry(NewFuncTool("flaky", "Always fails.", func(ctx context.Context, input string) (string, error) {
		return "", boom
	}))

	_, err := r.Dispatch(context.Background(), "flaky", "")
	assert.ErrorIs(t, err, boom)
}

func TestRegistryDescriptorsSorted(t *testing.T) {
	r := NewRegistry(
		NewFuncTool("zeta", "z", nil),
		NewFuncTool("alpha", "a", nil),
	)

	ds := r.Descriptors()
	require.Len(t, ds, 2)
	assert.Equal(t, "alpha", ds[0].Name)
	assert.Equal(t, "zeta", ds[1].Name)
}
