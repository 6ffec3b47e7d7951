package subjects

import (
	"encoding/json"
	"fmt"
	"io"

	"quizzapp-service/internal/domain"
)

// Decode reads a JSON array of subjects. Any trailing data after the array is rejected.
func Decode(r io.Reader) ([]domain.Subject, error) {
	dec := json.NewDecoder(r)
	var subjects []domain.Subject
	if err := dec.Decode(&subjects); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after subject array", ErrDecode)
	}
	if subjects == nil {
		subjects = []domain.Subject{}
	}
	return subjects, nil
}

// Encode writes subjects in the upstream wire format.
func Encode(w io.Writer, subjects []domain.Subject) error {
	return json.NewEncoder(w).Encode(subjects)
}
