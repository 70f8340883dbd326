package core

import (
	"bytes"
	"context"
	"testing"

	"github.com/aerospike-core/client/internal/testutil"
)

// adminReplyFrame builds a raw admin response frame. The admin header
// layout is identical between request and reply (spec.md §4.9: byte 2 is
// "command" on a request and "result_code" on a reply), so writeAdminFrame
// doubles as the reply encoder here.
func adminReplyFrame(t *testing.T, resultCode byte, fields []adminField) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := writeAdminFrame(&buf, adminCommandID(resultCode), fields); err != nil {
		t.Fatalf("writeAdminFrame: %v", err)
	}
	return buf.Bytes()
}

func newTestAdminClient(t *testing.T, addr string) *AdminClient {
	t.Helper()
	node := newTestNode(t, addr)
	t.Cleanup(node.Close)
	return NewAdminClient(node, DefaultAdminPolicy())
}

func TestAdminAuthenticateSuccess(t *testing.T) {
	fn := testutil.StartFakeNode(t)
	defer fn.Close()
	fn.Enqueue(adminReplyFrame(t, 0, nil))

	ac := newTestAdminClient(t, fn.Addr())
	if err := ac.Authenticate(context.Background(), "admin", "secret"); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
}

func TestAdminCreateUserServerError(t *testing.T) {
	fn := testutil.StartFakeNode(t)
	defer fn.Close()
	fn.Enqueue(adminReplyFrame(t, byte(ResultParameterError), nil))

	ac := newTestAdminClient(t, fn.Addr())
	err := ac.CreateUser(context.Background(), "bob", "hunter2", []string{"read-write"})
	if err == nil {
		t.Fatalf("expected an error for a non-zero admin result code")
	}
	ae, ok := err.(*AerospikeError)
	if !ok {
		t.Fatalf("expected *AerospikeError, got %T", err)
	}
	if ae.Code != ResultParameterError {
		t.Fatalf("Code = %v, want ResultParameterError", ae.Code)
	}
}

func TestAdminQueryUsersStreamsUntilQueryEnd(t *testing.T) {
	fn := testutil.StartFakeNode(t)
	defer fn.Close()

	row1 := adminReplyFrame(t, 0, []adminField{
		{id: adminFieldUser, data: []byte("alice")},
		{id: adminFieldRoles, data: encodeStringList([]string{"read-write"})},
	})
	row2 := adminReplyFrame(t, 0, []adminField{
		{id: adminFieldUser, data: []byte("bob")},
		{id: adminFieldRoles, data: encodeStringList([]string{"read"})},
	})
	end := adminReplyFrame(t, byte(ResultQueryEnd), nil)
	fn.Enqueue(append(append(row1, row2...), end...))

	ac := newTestAdminClient(t, fn.Addr())
	users, err := ac.QueryUsers(context.Background(), "")
	if err != nil {
		t.Fatalf("QueryUsers: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	if users[0].Name != "alice" || len(users[0].Roles) != 1 || users[0].Roles[0] != "read-write" {
		t.Fatalf("unexpected first user: %+v", users[0])
	}
	if users[1].Name != "bob" {
		t.Fatalf("unexpected second user: %+v", users[1])
	}
}
