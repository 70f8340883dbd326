package core

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

// protoTypeInfo is the proto header type byte for the plaintext info
// sub-protocol (spec.md §4.9 closing paragraph). Distinct from
// protoTypeAsMsg/protoTypeCompressed/protoTypeAdmin in proto.go.
const protoTypeInfo protoMsgType = 1

// sendInfo writes a single info request (the command text as given, e.g.
// "udf-put:filename=...;udf-type=...;...", followed by one "\n") and returns
// the parsed name/value response pairs. The
// only call path in scope is udf-put (spec.md §1's info-protocol
// Non-goals carve out everything else).
func sendInfo(ctx context.Context, node *Node, command string) (map[string]string, error) {
	conn, err := node.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if err := writeProtoFrame(conn, protoTypeInfo, []byte(command+"\n")); err != nil {
		node.CloseConnection(conn)
		return nil, newConnectionError(err, node.String(), 0)
	}
	_, payload, err := readProtoFrame(conn)
	if err != nil {
		node.CloseConnection(conn)
		return nil, newConnectionError(err, node.String(), 0)
	}
	node.Release(conn)
	return parseInfoResponse(payload), nil
}

// parseInfoResponse splits a response body into name\tvalue pairs, one per
// newline-terminated line, trimming any trailing blank line the server's
// terminator leaves behind.
func parseInfoResponse(payload []byte) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(string(payload), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) == 2 {
			out[parts[0]] = parts[1]
		} else {
			out[parts[0]] = ""
		}
	}
	return out
}

// UDFLanguage names the source language a registered UDF module is written
// in (spec.md §4.9 scopes only the register/content framing, not execution
// of any particular language).
type UDFLanguage string

const UDFLanguageLua UDFLanguage = "LUA"

// RegisterUDF uploads a UDF module's source via the udf-put info command
// (spec.md §1's sole in-scope info-protocol flow). content is the raw
// module source; it is base64-encoded on the wire per the historical
// protocol's udf-put parameters.
func RegisterUDF(ctx context.Context, node *Node, filename string, content []byte, lang UDFLanguage) error {
	encoded := base64.StdEncoding.EncodeToString(content)
	cmd := fmt.Sprintf("udf-put:filename=%s;udf-type=%s;content-len=%d;content=%s;",
		filename, lang, len(encoded), encoded)
	reply, err := sendInfo(ctx, node, cmd)
	if err != nil {
		return err
	}
	value := reply["udf-put"]
	if strings.Contains(value, "error") {
		return newParseError(errorString("udf-put: "+value), node.String())
	}
	return nil
}
