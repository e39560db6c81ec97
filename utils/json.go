package utils

import "encoding/json"

// Marshal generic struct to JSON
func MarshalToJSON[T any](input T) ([]byte, error) {
	return json.Marshal(input)
}

// Unmarshal JSON to generic struct
func UnmarshalFromJSON[T any](data []byte, output *T) error {
	return json.Unmarshal(data, output)
}
