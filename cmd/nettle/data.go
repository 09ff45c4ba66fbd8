package main

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// loadModel decodes a YAML (or JSON) document into the render model. An
// empty path yields an empty model.
func loadModel(path string) (interface{}, error) {
	if path == "" {
		return map[string]interface{}{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}
	return decodeModel(data)
}

func decodeModel(data []byte) (interface{}, error) {
	var model interface{}
	if err := yaml.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("failed to decode data: %w", err)
	}
	if model == nil {
		return map[string]interface{}{}, nil
	}
	return model, nil
}

func readAll(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
