package core

// ResultCode is a result code returned by the server in the 22-byte AS_MSG
// header. Only the codes the command execution core inspects directly are
// named; any other code is surfaced as a plain ServerError.
type ResultCode int

const (
	ResultOK                ResultCode = 0
	ResultKeyNotFound        ResultCode = 2
	ResultGenerationError    ResultCode = 3
	ResultParameterError     ResultCode = 4
	ResultKeyExistsError     ResultCode = 5
	ResultBinExistsError     ResultCode = 6
	ResultTimeout            ResultCode = 9
	ResultDeviceOverload     ResultCode = 18
	ResultFilteredOut        ResultCode = 27
	ResultInvalidNode        ResultCode = 40
	ResultUDFBadResponse     ResultCode = 100
	ResultQueryEnd           ResultCode = 50
	ResultMRTCommitted       ResultCode = 121
	ResultMRTAborted         ResultCode = 122
)

// Client-only codes. These never appear on the wire; they classify failures
// detected before or alongside a server round trip. Negative so they can
// never collide with a server ResultCode.
const (
	ResultClientTimeout   ResultCode = -1
	ResultClientConnError ResultCode = -2
	ResultClientParseErr  ResultCode = -3
	ResultClientBackoff   ResultCode = -4
	ResultClientCancelled ResultCode = -5
	ResultClientNoMoreConnections ResultCode = -6
)

// String renders a human readable name for logging; unknown codes render as
// their integer value so a log line is still useful.
func (r ResultCode) String() string {
	switch r {
	case ResultOK:
		return "OK"
	case ResultKeyNotFound:
		return "KEY_NOT_FOUND_ERROR"
	case ResultGenerationError:
		return "GENERATION_ERROR"
	case ResultParameterError:
		return "PARAMETER_ERROR"
	case ResultKeyExistsError:
		return "KEY_EXISTS_ERROR"
	case ResultBinExistsError:
		return "BIN_EXISTS_ERROR"
	case ResultTimeout:
		return "TIMEOUT"
	case ResultDeviceOverload:
		return "DEVICE_OVERLOAD"
	case ResultFilteredOut:
		return "FILTERED_OUT"
	case ResultInvalidNode:
		return "INVALID_NODE"
	case ResultUDFBadResponse:
		return "UDF_BAD_RESPONSE"
	case ResultQueryEnd:
		return "QUERY_END"
	case ResultMRTCommitted:
		return "MRT_COMMITTED"
	case ResultMRTAborted:
		return "MRT_ABORTED"
	case ResultClientTimeout:
		return "CLIENT_TIMEOUT"
	case ResultClientConnError:
		return "CLIENT_CONNECTION_ERROR"
	case ResultClientParseErr:
		return "CLIENT_PARSE_ERROR"
	case ResultClientBackoff:
		return "CLIENT_BACKOFF"
	case ResultClientCancelled:
		return "CLIENT_CANCELLED"
	case ResultClientNoMoreConnections:
		return "CLIENT_NO_MORE_CONNECTIONS"
	default:
		return "UNKNOWN"
	}
}

// keepConnection reports whether a server-returned result code leaves the
// socket in a clean state that may be returned to the pool. Per spec.md
// §4.4, anything other than TIMEOUT/DEVICE_OVERLOAD (which retry) is
// surfaced immediately with the connection kept alive, since the server
// fully answered the request.
func (r ResultCode) keepConnection() bool {
	switch r {
	case ResultTimeout, ResultDeviceOverload:
		return false
	default:
		return true
	}
}
