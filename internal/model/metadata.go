package model

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// knownMetadataFields are the sidecar keys Metadata understands. Exporters add
// extra keys over time (layer arguments such as "groups" among them); those are
// dropped rather than failing the load.
var knownMetadataFields = map[string]bool{
	"input_shape":  true,
	"output_shape": true,
	"classes":      true,
	"image_size":   true,
}

// ReadMetadata loads the sidecar at path. It returns the names of any fields
// that were ignored.
func ReadMetadata(path string) (*Metadata, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	return decodeMetadata(data)
}

func decodeMetadata(data []byte) (*Metadata, []string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("failed to parse metadata: %w", err)
	}

	var ignored []string
	for key := range raw {
		if !knownMetadataFields[key] {
			ignored = append(ignored, key)
			delete(raw, key)
		}
	}
	sort.Strings(ignored)

	cleaned, err := json.Marshal(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal(cleaned, &metadata); err != nil {
		return nil, nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return &metadata, ignored, nil
}

// Check verifies the sidecar against the contract. Fields left empty are not checked.
func (m *Metadata) Check(c Contract) error {
	if m.ImageSize != 0 && m.ImageSize != c.ImageSize {
		return fmt.Errorf("%w: metadata image_size %d, configured %d", ErrShapeMismatch, m.ImageSize, c.ImageSize)
	}
	if len(m.InputShape) > 0 {
		if err := c.CheckInput(m.InputShape); err != nil {
			return err
		}
	}
	if len(m.OutputShape) > 0 {
		if err := c.CheckOutput(m.OutputShape); err != nil {
			return err
		}
	}
	if len(m.Classes) > 0 && len(m.Classes) != c.NumClasses {
		return fmt.Errorf("%w: metadata lists %d classes, expected %d", ErrShapeMismatch, len(m.Classes), c.NumClasses)
	}
	return nil
}

// CheckInput verifies a declared model input shape. -1 marks a dynamic dimension
// and matches anything.
func (c Contract) CheckInput(shape []int64) error {
	if !shapeMatches(shape, c.InputShape()) {
		return fmt.Errorf("%w: model input %v, expected %v", ErrShapeMismatch, shape, c.InputShape())
	}
	return nil
}

// CheckOutput verifies a declared model output shape.
func (c Contract) CheckOutput(shape []int64) error {
	if !shapeMatches(shape, c.OutputShape()) {
		return fmt.Errorf("%w: model output %v, expected %v", ErrShapeMismatch, shape, c.OutputShape())
	}
	return nil
}

func shapeMatches(declared, want []int64) bool {
	if len(declared) != len(want) {
		return false
	}
	for i, dim := range declared {
		if dim != -1 && dim != want[i] {
			return false
		}
	}
	return true
}
