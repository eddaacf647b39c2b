package persist

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vango-dev/draftform/pkg/record"
)

// EnvelopeVersion is the current version of the draft envelope format.
// Increment when making breaking changes to the format.
const EnvelopeVersion = 1

// Envelope is the serialized form of a draft record.
type Envelope struct {
	Version int          `json:"version"`
	Screen  string       `json:"screen"`
	Values  record.Draft `json:"values"`
	SavedAt time.Time    `json:"savedAt"`
}

// EncodeDraft wraps draft in an envelope for screen and marshals it.
func EncodeDraft(screen string, draft record.Draft, savedAt time.Time) ([]byte, error) {
	env := Envelope{
		Version: EnvelopeVersion,
		Screen:  screen,
		Values:  draft,
		SavedAt: savedAt.UTC(),
	}
	if env.Values == nil {
		env.Values = record.Draft{}
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("persist: encode draft %q: %w", screen, err)
	}
	return data, nil
}

// DecodeDraft unmarshals an envelope. Numbers come back as float64.
func DecodeDraft(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("persist: decode draft: %w", err)
	}
	if env.Version == 0 || env.Version > EnvelopeVersion {
		return Envelope{}, fmt.Errorf("persist: unsupported envelope version %d", env.Version)
	}
	if env.Values == nil {
		env.Values = record.Draft{}
	}
	return env, nil
}
