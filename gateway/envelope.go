package gateway

import "fmt"

// Envelope is the uniform result wrapper embedded by every per-verb result
// type. Exactly one side is populated: a success envelope carries payload
// fields on the embedding struct, an error envelope carries the message and
// machine kind. A failed envelope never carries a pagination cursor.
type Envelope struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	ErrorKind Kind   `json:"error_kind,omitempty"`
}

// OK returns the success envelope.
func OK() Envelope {
	return Envelope{Success: true}
}

// Fail builds the error envelope for a failed verb. target names the key or
// query the verb was addressing and may be empty. The message names the verb,
// the target and the underlying cause; classified errors never carry
// credentials in their text, so the message is safe to return to callers.
func Fail(verb, target string, err error) Envelope {
	var msg string
	if target == "" {
		msg = fmt.Sprintf("%s: %v", verb, err)
	} else {
		msg = fmt.Sprintf("%s %s: %v", verb, target, err)
	}
	return Envelope{Success: false, Error: msg, ErrorKind: KindOf(err)}
}
