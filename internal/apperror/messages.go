package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	CodeConfigurationError: "Configuration error",

	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	CodeInvalidAmount:       "Amount is negative, not finite or exceeds the i128 range",
	CodeDegenerateReserves:  "Pool reserves are empty on at least one side",
	CodeInvalidTolerance:    "Slippage tolerance must be in [0, 100)",
	CodeZeroAmount:          "Nothing to execute: both amounts are zero",
	CodeInvalidSharePercent: "Share percent must be in (0, 100]",
	CodeInsufficientShares:  "Share amount exceeds the account share balance",

	CodeExecutionReverted: "Transaction failed. Try to increase the slippage for more chances of success.",
	CodePriceDeviation:    "Pool price deviates from the reference price beyond the allowed threshold",

	CodeRPCConnectionFailed: "Failed to connect to the RPC node",
	CodeRPCError:            "RPC call failed",
	CodeContractCallFailed:  "Contract call failed",
	CodeInvalidContractData: "Unexpected contract return data",
	CodeBlockNotFound:       "Block not found",
	CodeGasEstimationFailed: "Gas estimation failed",
	CodeSigningFailed:       "Failed to sign transaction",
	CodeSubmissionFailed:    "Failed to submit transaction",
	CodeReceiptTimeout:      "Timed out waiting for the transaction receipt",

	CodeReferencePriceFailed: "Failed to fetch reference price",
	CodeJournalWriteFailed:   "Failed to record submission",

	CodeCircuitOpen: "Circuit breaker is open",
}
