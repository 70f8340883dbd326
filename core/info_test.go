package core

import (
	"context"
	"testing"

	"github.com/aerospike-core/client/internal/testutil"
)

func TestParseInfoResponseSplitsNameValuePairs(t *testing.T) {
	got := parseInfoResponse([]byte("statistics\tuptime=10;mem=2\nversion\t7.0\n"))
	if got["statistics"] != "uptime=10;mem=2" {
		t.Fatalf("statistics = %q", got["statistics"])
	}
	if got["version"] != "7.0" {
		t.Fatalf("version = %q", got["version"])
	}
}

func TestParseInfoResponseHandlesValuelessName(t *testing.T) {
	got := parseInfoResponse([]byte("ping\n"))
	if v, ok := got["ping"]; !ok || v != "" {
		t.Fatalf("ping = (%q,%t), want (\"\",true)", v, ok)
	}
}

func TestRegisterUDFSuccess(t *testing.T) {
	fn := testutil.StartFakeNode(t)
	defer fn.Close()
	fn.Enqueue(testutil.ProtoFrame(1, []byte("udf-put\tok\n")))

	node := newTestNode(t, fn.Addr())
	defer node.Close()

	err := RegisterUDF(context.Background(), node, "helpers.lua", []byte("function f() end"), UDFLanguageLua)
	if err != nil {
		t.Fatalf("RegisterUDF: %v", err)
	}
}

func TestRegisterUDFServerReportsError(t *testing.T) {
	fn := testutil.StartFakeNode(t)
	defer fn.Close()
	fn.Enqueue(testutil.ProtoFrame(1, []byte("udf-put\terror=invalid_language\n")))

	node := newTestNode(t, fn.Addr())
	defer node.Close()

	err := RegisterUDF(context.Background(), node, "helpers.lua", []byte("function f() end"), UDFLanguageLua)
	if err == nil {
		t.Fatalf("expected an error when the server reports udf-put=error...")
	}
}
