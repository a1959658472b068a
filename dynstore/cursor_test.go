// dynstore/cursor_test.go
package dynstore

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/medassureai/artifact-gateway/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	lastKey := map[string]types.AttributeValue{
		"PK":      &types.AttributeValueMemberS{Value: "PROJECT#t1"},
		"SK":      &types.AttributeValueMemberS{Value: "EPIC#E1"},
		"version": &types.AttributeValueMemberN{Value: "42"},
		"digest":  &types.AttributeValueMemberB{Value: []byte{0x01, 0xff}},
	}

	token, err := encodeCursor(lastKey)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	decoded, err := decodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, lastKey, decoded)
}

func TestEncodeCursorEmptyKey(t *testing.T) {
	token, err := encodeCursor(nil)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestEncodeCursorRejectsNonKeyTypes(t *testing.T) {
	_, err := encodeCursor(map[string]types.AttributeValue{
		"flag": &types.AttributeValueMemberBOOL{Value: true},
	})
	assert.Error(t, err)
}

func TestDecodeCursorEmptyToken(t *testing.T) {
	key, err := decodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, key)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	for _, token := range []string{"not base64!!", "Z2FyYmFnZQ==", "e30="} {
		_, err := decodeCursor(token)
		require.Error(t, err, "token %q", token)
		assert.True(t, gateway.IsValidation(err), "token %q", token)
	}
}
