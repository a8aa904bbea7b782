package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeServiceTimeout:     "Service request timeout",
	CodeServiceUnavailable: "Service temporarily unavailable",

	// System errors
	CodeInternalError: "Internal error",
	CodeUnknownError:  "An unknown error occurred",

	// Signer
	CodeSignerNotConfigured: "No signing account configured",
	CodeInvalidPrivateKey:   "Private key could not be parsed",

	// Blockchain/Ethereum errors
	CodeEthereumConnectionFailed: "Failed to connect to Ethereum node",
	CodeEthereumRPCError:         "Ethereum RPC call failed",
	CodeChainIDMismatch:          "Node chain ID does not match configuration",
	CodeGasEstimationFailed:      "Gas estimation failed",

	// Transaction lifecycle
	CodeTransactionRejected:    "Transaction rejected by the network",
	CodeTransactionReverted:    "Transaction reverted",
	CodeConfirmationTimeout:    "Transaction was not confirmed in time",
	CodeInvalidConstructorArgs: "Constructor arguments could not be encoded",

	// Contract artifacts and calls
	CodeArtifactNotFound:   "Contract artifact not found",
	CodeInvalidArtifact:    "Contract artifact is invalid",
	CodeContractCallFailed: "Smart contract call failed",

	// Deployment record storage
	CodeRecordWriteFailed: "Failed to write deployment record",
	CodeRecordReadFailed:  "Failed to read deployment record",

	// Circuit breaker errors
	CodeCircuitOpen:     "Circuit breaker is open",
	CodeCircuitHalfOpen: "Circuit breaker is half-open",
}
