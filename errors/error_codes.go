package errors

// ERR is the code carried by every *Error.
type ERR int32

const (
	ERR_UNKNOWN                 ERR = 0
	ERR_INVALID_ARGUMENT        ERR = 1
	ERR_NOT_FOUND               ERR = 2
	ERR_PROCESSING              ERR = 3
	ERR_CONFIGURATION           ERR = 4
	ERR_CONTEXT                 ERR = 5
	ERR_CONTEXT_CANCELED        ERR = 6
	ERR_ERROR                   ERR = 9
	ERR_TX_NOT_FOUND            ERR = 30
	ERR_TX_INVALID              ERR = 31
	ERR_TX_INVALID_DOUBLE_SPEND ERR = 32
	ERR_TX_INVALID_SIGNATURE    ERR = 33
	ERR_TX_INSUFFICIENT_INPUTS  ERR = 34
	ERR_TX_ERROR                ERR = 39
	ERR_UTXO_NOT_FOUND          ERR = 40
	ERR_UTXO_ERROR              ERR = 49
	ERR_STORAGE_UNAVAILABLE     ERR = 60
	ERR_STORAGE_ERROR           ERR = 69
)

var ERR_name = map[int32]string{
	0:  "UNKNOWN",
	1:  "INVALID_ARGUMENT",
	2:  "NOT_FOUND",
	3:  "PROCESSING",
	4:  "CONFIGURATION",
	5:  "CONTEXT",
	6:  "CONTEXT_CANCELED",
	9:  "ERROR",
	30: "TX_NOT_FOUND",
	31: "TX_INVALID",
	32: "TX_INVALID_DOUBLE_SPEND",
	33: "TX_INVALID_SIGNATURE",
	34: "TX_INSUFFICIENT_INPUTS",
	39: "TX_ERROR",
	40: "UTXO_NOT_FOUND",
	49: "UTXO_ERROR",
	60: "STORAGE_UNAVAILABLE",
	69: "STORAGE_ERROR",
}

func (x ERR) String() string {
	if name, ok := ERR_name[int32(x)]; ok {
		return name
	}

	return "UNKNOWN"
}
