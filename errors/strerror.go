package errors

// Strerror returns a human-readable description of err, including any
// context stacked on by WithMessage or WrapError.
func Strerror(err error) string {
	if err == nil {
		return "success"
	}
	return err.Error()
}
