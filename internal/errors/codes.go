package errors

// Error codes for the temporal-safety pass suite.
//
// Error code ranges:
// E1000-E1099: Lock-insertion precondition failures
// E1100-E1199: Type-harmonization precondition failures
// E1200-E1299: Free-finder / driver dependency failures
// E1300-E1399: Check-removal precondition failures

const (
	// E1001: multi-qual storage declared thread-local; out of scope (§4.2 Edge cases)
	ErrThreadLocalMultiQual = "E1001"

	// E1101: a store's value operand that should be re-tagged to the
	// array-ptr aggregate type is not produced by an InsertField
	ErrStoreValueNotInsertField = "E1101"

	// E1201: a pass ran without a required upstream analysis result present
	ErrMissingDependency = "E1201"

	// E1301: a key-check call's argument could not be traced to a single
	// canonical aggregate address
	ErrUnresolvedCheckAddress = "E1301"
)

// GetErrorDescription returns a human-readable description of code.
func GetErrorDescription(code string) string {
	switch code {
	case ErrThreadLocalMultiQual:
		return "thread-local storage cannot carry the multi-qual attribute"
	case ErrStoreValueNotInsertField:
		return "ill-formed store's value operand is not produced by an InsertField"
	case ErrMissingDependency:
		return "pass ran without a required upstream analysis result"
	case ErrUnresolvedCheckAddress:
		return "key-check call argument does not trace to a single aggregate address"
	default:
		return "unknown error code"
	}
}
