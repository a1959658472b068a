// dynstore/cursor.go
package dynstore

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/medassureai/artifact-gateway/gateway"
)

// cursorValue holds one key attribute of a pagination cursor. Key attributes
// are always S, N or B, so the cursor survives an exact round trip.
type cursorValue struct {
	S *string `json:"s,omitempty"`
	N *string `json:"n,omitempty"`
	B []byte  `json:"b,omitempty"`
}

func encodeCursor(lastKey map[string]types.AttributeValue) (string, error) {
	if len(lastKey) == 0 {
		return "", nil
	}

	vals := make(map[string]cursorValue, len(lastKey))
	for name, av := range lastKey {
		switch v := av.(type) {
		case *types.AttributeValueMemberS:
			s := v.Value
			vals[name] = cursorValue{S: &s}
		case *types.AttributeValueMemberN:
			n := v.Value
			vals[name] = cursorValue{N: &n}
		case *types.AttributeValueMemberB:
			vals[name] = cursorValue{B: v.Value}
		default:
			return "", fmt.Errorf("dynstore: unsupported key attribute type %T in cursor", av)
		}
	}

	b, err := json.Marshal(vals)
	if err != nil {
		return "", fmt.Errorf("dynstore: encode cursor: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func decodeCursor(token string) (map[string]types.AttributeValue, error) {
	if token == "" {
		return nil, nil
	}

	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, gateway.NewValidationError("cursor", "is not a valid pagination token")
	}

	var vals map[string]cursorValue
	if err := json.Unmarshal(data, &vals); err != nil || len(vals) == 0 {
		return nil, gateway.NewValidationError("cursor", "is not a valid pagination token")
	}

	key := make(map[string]types.AttributeValue, len(vals))
	for name, v := range vals {
		switch {
		case v.S != nil:
			key[name] = &types.AttributeValueMemberS{Value: *v.S}
		case v.N != nil:
			key[name] = &types.AttributeValueMemberN{Value: *v.N}
		case len(v.B) > 0:
			key[name] = &types.AttributeValueMemberB{Value: v.B}
		default:
			return nil, gateway.NewValidationError("cursor", "is not a valid pagination token")
		}
	}
	return key, nil
}
