package stepflow

import "github.com/google/uuid"

// GenerateExecutionID returns a fresh globally-unique executionId
// (a UUIDv4).
func GenerateExecutionID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
