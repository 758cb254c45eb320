package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Transaction-parameter errors. All are detected before any call leaves the process.
const (
	CodeInvalidAmount       Code = "INVALID_AMOUNT"
	CodeDegenerateReserves  Code = "DEGENERATE_RESERVES"
	CodeInvalidTolerance    Code = "INVALID_TOLERANCE"
	CodeZeroAmount          Code = "ZERO_AMOUNT"
	CodeInvalidSharePercent Code = "INVALID_SHARE_PERCENT"
	CodeInsufficientShares  Code = "INSUFFICIENT_SHARES"
)

// Settlement errors
const (
	CodeExecutionReverted Code = "EXECUTION_REVERTED"
	CodePriceDeviation    Code = "PRICE_DEVIATION"
)

// Infrastructure error codes
const (
	CodeRPCConnectionFailed Code = "RPC_CONNECTION_FAILED"
	CodeRPCError            Code = "RPC_ERROR"
	CodeContractCallFailed  Code = "CONTRACT_CALL_FAILED"
	CodeInvalidContractData Code = "INVALID_CONTRACT_DATA"
	CodeBlockNotFound       Code = "BLOCK_NOT_FOUND"
	CodeGasEstimationFailed Code = "GAS_ESTIMATION_FAILED"
	CodeSigningFailed       Code = "SIGNING_FAILED"
	CodeSubmissionFailed    Code = "SUBMISSION_FAILED"
	CodeReceiptTimeout      Code = "RECEIPT_TIMEOUT"

	CodeReferencePriceFailed Code = "REFERENCE_PRICE_FAILED"
	CodeJournalWriteFailed   Code = "JOURNAL_WRITE_FAILED"

	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)

// IsInputError reports whether code describes malformed caller input.
// Such errors must be fixed by the caller and never retried as-is.
func IsInputError(code Code) bool {
	switch code {
	case CodeInvalidAmount, CodeInvalidTolerance, CodeZeroAmount,
		CodeInvalidSharePercent, CodeInsufficientShares,
		CodeInvalidInput, CodeRequiredField, CodeInvalidFormat, CodeValidationError:
		return true
	}
	return false
}

// RequiresRefetch reports whether the pool state must be re-read and the
// request rebuilt before another attempt.
func RequiresRefetch(code Code) bool {
	switch code {
	case CodeExecutionReverted, CodeDegenerateReserves, CodePriceDeviation:
		return true
	}
	return false
}
