package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误
	ErrCodeInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"
	ErrCodeBadRequest     ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"

	// 验证错误
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// 文档处理错误
	ErrCodeUnsupportedFileType ErrorCode = "UNSUPPORTED_FILE_TYPE"
	ErrCodeFileTooLarge        ErrorCode = "FILE_TOO_LARGE"

	// 向量化与检索错误
	ErrCodeEmbeddingProvider ErrorCode = "EMBEDDING_PROVIDER_ERROR"
	ErrCodeStoreIO           ErrorCode = "STORE_IO_ERROR"
	ErrCodeExternalIndex     ErrorCode = "EXTERNAL_INDEX_ERROR"
	ErrCodeDegenerateVector  ErrorCode = "DEGENERATE_VECTOR"
)

// ErrorType 错误类型
type ErrorType int

const (
	ErrorTypeSystem ErrorType = iota
	ErrorTypeBusiness
	ErrorTypeValidation
	ErrorTypeExternal
)

// AppError 应用错误结构体
type AppError struct {
	Code     ErrorCode   `json:"code"`
	Message  string      `json:"message"`
	Type     ErrorType   `json:"type"`
	HTTPCode int         `json:"-"`
	Details  interface{} `json:"details,omitempty"`
	Cause    error       `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加错误详情
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// WithCause 添加错误原因
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// 错误构造函数

// NewSystemError 创建系统错误
func NewSystemError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Type:     ErrorTypeSystem,
		HTTPCode: http.StatusInternalServerError,
	}
}

// NewValidationError 创建验证错误
func NewValidationError(message string) *AppError {
	return &AppError{
		Code:     ErrCodeValidationFailed,
		Message:  message,
		Type:     ErrorTypeValidation,
		HTTPCode: http.StatusBadRequest,
	}
}

// NewUnsupportedFileTypeError 创建不支持的文件类型错误，message中包含扩展名
func NewUnsupportedFileTypeError(extension string) *AppError {
	return &AppError{
		Code:     ErrCodeUnsupportedFileType,
		Message:  fmt.Sprintf("unsupported file type: %s", extension),
		Type:     ErrorTypeValidation,
		HTTPCode: http.StatusBadRequest,
	}
}

// NewEmbeddingProviderError 创建向量化服务错误
func NewEmbeddingProviderError(cause error) *AppError {
	return &AppError{
		Code:     ErrCodeEmbeddingProvider,
		Message:  "embedding provider call failed",
		Type:     ErrorTypeExternal,
		HTTPCode: http.StatusBadGateway,
		Cause:    cause,
	}
}

// NewStoreIOError 创建本地向量存储读写错误
func NewStoreIOError(op string, cause error) *AppError {
	return &AppError{
		Code:     ErrCodeStoreIO,
		Message:  fmt.Sprintf("vector store %s failed", op),
		Type:     ErrorTypeSystem,
		HTTPCode: http.StatusInternalServerError,
		Cause:    cause,
	}
}

// NewExternalIndexError 创建外部向量索引服务错误
func NewExternalIndexError(op string, cause error) *AppError {
	return &AppError{
		Code:     ErrCodeExternalIndex,
		Message:  fmt.Sprintf("external index %s failed", op),
		Type:     ErrorTypeExternal,
		HTTPCode: http.StatusBadGateway,
		Cause:    cause,
	}
}

// NewDegenerateVectorError 创建零向量错误（上游embedding契约被破坏）
func NewDegenerateVectorError() *AppError {
	return &AppError{
		Code:     ErrCodeDegenerateVector,
		Message:  "zero-magnitude embedding vector",
		Type:     ErrorTypeSystem,
		HTTPCode: http.StatusInternalServerError,
	}
}

// IsAppError 检查是否为AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// IsCode 检查错误链中是否包含指定错误码
func IsCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetAppError 获取AppError，如果不是则包装为系统错误
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewSystemError(ErrCodeInternalServer, "Internal server error").WithCause(err)
}
