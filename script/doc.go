// Package script moves SQL scripts in and payload exports out.
//
// Locations may be local paths, file:// URLs, http(s):// URLs or
// s3://bucket/key. HTTP exports are sent with PUT.
//
//	text, err := script.Load(ctx, "s3://bucket/seed.sql", nil)
//	err = script.Export(ctx, "out.json", payloads, nil)
package script
