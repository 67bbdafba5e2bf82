package errors

import "net/http"

// ErrorCode identifies a failure category. Codes are stable strings so they
// can be matched by clients and emitted as metric labels.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes shared by every module.
const (
	ErrCodeInternal           ErrorCode = "COMMON_001"
	ErrCodeBadRequest         ErrorCode = "COMMON_002"
	ErrCodeNotFound           ErrorCode = "COMMON_003"
	ErrCodeConflict           ErrorCode = "COMMON_004"
	ErrCodeServiceUnavailable ErrorCode = "COMMON_005"
	ErrCodeTimeout            ErrorCode = "COMMON_006"
	ErrCodeValidation         ErrorCode = "COMMON_007"
	ErrCodeSerialization      ErrorCode = "COMMON_008"
	ErrCodeDatabaseError      ErrorCode = "COMMON_009"
	ErrCodeCacheError         ErrorCode = "COMMON_010"
	ErrCodeExternalService    ErrorCode = "COMMON_011"
	ErrCodeNotImplemented     ErrorCode = "COMMON_012"
	ErrCodeUnknown            ErrorCode = "COMMON_099"
)

// Risk module error codes.
const (
	ErrCodeRiskNotFound        ErrorCode = "RISK_001"
	ErrCodeFactorOutOfRange    ErrorCode = "RISK_002"
	ErrCodeTreatmentInvalid    ErrorCode = "RISK_003"
	ErrCodeMitigatedIncomplete ErrorCode = "RISK_004"
)

// Similarity module error codes.
const (
	ErrCodeEmbeddingFailed    ErrorCode = "SIM_001"
	ErrCodeDimensionMismatch  ErrorCode = "SIM_002"
	ErrCodeCorpusUnavailable  ErrorCode = "SIM_003"
	ErrCodeVectorStoreFailure ErrorCode = "SIM_004"
)

// Scan module error codes.
const (
	ErrCodeScanNotFound   ErrorCode = "SCAN_001"
	ErrCodeScanSuperseded ErrorCode = "SCAN_002"
	ErrCodeScanFailed     ErrorCode = "SCAN_003"
)

// Aliases kept for call-site readability.
const (
	CodeOK           = ErrorCode("OK")
	CodeUnknown      = ErrCodeUnknown
	CodeInternal     = ErrCodeInternal
	CodeInvalidParam = ErrCodeBadRequest
	CodeNotFound     = ErrCodeNotFound
	CodeValidation   = ErrCodeValidation
)

// HTTPStatus maps an ErrorCode to the HTTP status the interface layer should
// respond with. Unknown codes map to 500.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case CodeOK:
		return http.StatusOK
	case ErrCodeBadRequest, ErrCodeValidation, ErrCodeFactorOutOfRange, ErrCodeTreatmentInvalid, ErrCodeMitigatedIncomplete:
		return http.StatusBadRequest
	case ErrCodeNotFound, ErrCodeRiskNotFound, ErrCodeScanNotFound:
		return http.StatusNotFound
	case ErrCodeConflict, ErrCodeScanSuperseded:
		return http.StatusConflict
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeServiceUnavailable, ErrCodeExternalService, ErrCodeCorpusUnavailable, ErrCodeEmbeddingFailed, ErrCodeVectorStoreFailure:
		return http.StatusServiceUnavailable
	case ErrCodeNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
