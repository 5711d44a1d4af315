package credstore

// StorageError indicates a credential persistence failure. Callers should
// treat it as equivalent to having no stored credentials and force
// re-authentication; the record is not recoverable without storage.
type StorageError struct {
	// Op is the operation that failed: "init", "set", or "clear".
	Op string

	// Path is the credential record path.
	Path string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return "credstore: " + e.Op + " " + e.Path + ": " + e.Err.Error()
}

// Unwrap returns the underlying error for error chain inspection.
func (e *StorageError) Unwrap() error {
	return e.Err
}
