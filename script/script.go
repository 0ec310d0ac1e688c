package script

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// Load reads a whole SQL script from a file, http(s) or s3 location.
func Load(ctx context.Context, location string, opts *S3Options) (string, error) {
	reader, err := Open(ctx, location, opts)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", location, err)
	}
	return string(data), nil
}

// Export writes value as indented JSON to a location. The write only
// counts once Close succeeds, which is when remote uploads happen.
func Export(ctx context.Context, location string, value any, opts *S3Options) error {
	writer, err := Create(ctx, location, opts)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(value); err != nil {
		writer.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return writer.Close()
}
