package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// General validation
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeServiceTimeout     Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Deployment-specific error codes
const (
	// Signer
	CodeSignerNotConfigured Code = "SIGNER_NOT_CONFIGURED"
	CodeInvalidPrivateKey   Code = "INVALID_PRIVATE_KEY"

	// Blockchain/Ethereum errors
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeEthereumRPCError         Code = "ETHEREUM_RPC_ERROR"
	CodeChainIDMismatch          Code = "CHAIN_ID_MISMATCH"
	CodeGasEstimationFailed      Code = "GAS_ESTIMATION_FAILED"

	// Transaction lifecycle
	CodeTransactionRejected    Code = "TRANSACTION_REJECTED"
	CodeTransactionReverted    Code = "TRANSACTION_REVERTED"
	CodeConfirmationTimeout    Code = "CONFIRMATION_TIMEOUT"
	CodeInvalidConstructorArgs Code = "INVALID_CONSTRUCTOR_ARGS"

	// Contract artifacts and calls
	CodeArtifactNotFound   Code = "ARTIFACT_NOT_FOUND"
	CodeInvalidArtifact    Code = "INVALID_ARTIFACT"
	CodeContractCallFailed Code = "CONTRACT_CALL_FAILED"

	// Deployment record storage
	CodeRecordWriteFailed Code = "RECORD_WRITE_FAILED"
	CodeRecordReadFailed  Code = "RECORD_READ_FAILED"

	// Circuit breaker errors
	CodeCircuitOpen     Code = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen Code = "CIRCUIT_HALF_OPEN"
)
