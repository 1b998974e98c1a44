package service

import (
	"encoding/json"
	"log"
	"time"
)

// logEvent writes a one-line JSON log entry to stdout, matching the
// request-logger output so operator tooling sees a single format.
func logEvent(level, event string, fields map[string]any) {
	entry := map[string]any{
		"ts":        time.Now().UTC().Format(time.RFC3339Nano),
		"level":     level,
		"component": "document_service",
		"event":     event,
	}
	for k, v := range fields {
		entry[k] = v
	}
	b, err := json.Marshal(entry)
	if err != nil {
		log.Printf("failed to marshal log entry: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
