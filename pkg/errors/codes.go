package errors

// JSON-RPC 2.0 reserved codes
const (
	CodeParseError     int = -32700
	CodeInvalidRequest int = -32600
	CodeMethodNotFound int = -32601
	CodeInvalidParams  int = -32602
	CodeInternalError  int = -32603
)

// Server-defined codes
const (
	CodeRequestTimeout   int = -32001
	CodeResourceNotFound int = -32002
	CodeDomainFailure    int = -32010
	CodeTransportError   int = -32500 // never sent; classifies channel faults in logs
	CodeRequestCancelled int = -32800
)
