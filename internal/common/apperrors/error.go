package apperrors

// Error is the error type returned across package boundaries.
// Sentinels are created with New and specialised with the derivation methods,
// which never modify the receiver.
type Error interface {
	Error() string
	ErrorAll() string
	New(msg string) Error
	MsgErr(msg string, err ...error) Error
	Msg(msg string) Error
	Prefix(prefix string) Error
	Suffix(suffix string) Error
	Err(err ...error) Error
	Unwrap() []error
	Is(target error) bool
	SetExpandError(expand bool) Error
}
