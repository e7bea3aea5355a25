package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

type mockSSM struct {
	out   *ssm.GetParameterOutput
	err   error
	in    *ssm.GetParameterInput
	calls int
}

func (m *mockSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	m.in = in
	m.calls++
	return m.out, m.err
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestGetParameter(t *testing.T) {
	value := "secret-key"
	api := &mockSSM{out: &ssm.GetParameterOutput{
		Parameter: &ssmtypes.Parameter{Value: &value},
	}}
	c, err := New(api)
	require.NoError(t, err)

	got, err := c.GetParameter(context.Background(), " /healthkinator/gemini-api-key ")
	require.NoError(t, err)
	require.Equal(t, "secret-key", got)
	require.Equal(t, "/healthkinator/gemini-api-key", *api.in.Name)
	require.True(t, *api.in.WithDecryption)
}

func TestGetParameterCachesResolvedValues(t *testing.T) {
	value := "secret-key"
	api := &mockSSM{out: &ssm.GetParameterOutput{
		Parameter: &ssmtypes.Parameter{Value: &value},
	}}
	c, err := New(api)
	require.NoError(t, err)

	for range 3 {
		got, err := c.GetParameter(context.Background(), "/healthkinator/gemini-api-key")
		require.NoError(t, err)
		require.Equal(t, "secret-key", got)
	}
	require.Equal(t, 1, api.calls)
}

func TestGetParameterEmptyName(t *testing.T) {
	c, err := New(&mockSSM{})
	require.NoError(t, err)
	_, err = c.GetParameter(context.Background(), "  ")
	require.Error(t, err)
}

func TestGetParameterAPIError(t *testing.T) {
	c, err := New(&mockSSM{err: errors.New("access denied")})
	require.NoError(t, err)
	_, err = c.GetParameter(context.Background(), "/x")
	require.ErrorContains(t, err, "access denied")
}

func TestGetParameterMissingValue(t *testing.T) {
	c, err := New(&mockSSM{out: &ssm.GetParameterOutput{}})
	require.NoError(t, err)
	_, err = c.GetParameter(context.Background(), "/x")
	require.Error(t, err)
}
