package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify_Success(t *testing.T) {
	t.Parallel()

	codec := NewCodec("super-secret")

	tok, err := codec.Issue("alice@example.com", time.Hour)
	require.NoError(t, err)

	subject, err := codec.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", subject)
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()

	codec := NewCodec("secret")

	tok, err := codec.Issue("u1@example.com", -1*time.Second)
	require.NoError(t, err)

	_, err = codec.Verify(tok)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewCodec("right-secret").Issue("u2@example.com", time.Hour)
	require.NoError(t, err)

	_, err = NewCodec("wrong-secret").Verify(tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()

	codec := NewCodec("k")

	for _, tok := range []string{"", "not.a.jwt", "aaaa.bbbb", "a.b.c.d"} {
		_, err := codec.Verify(tok)
		assert.ErrorIs(t, err, ErrTokenInvalid, "token %q", tok)
	}
}

func TestVerify_ExpiredBeatsInvalidOnlyWhenSigned(t *testing.T) {
	t.Parallel()

	tok, err := NewCodec("right-secret").Issue("u3@example.com", -time.Minute)
	require.NoError(t, err)

	// Expired but tampered must report invalid, not expired.
	_, err = NewCodec("other-secret").Verify(tok)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}
