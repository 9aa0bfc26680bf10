// Package model wraps serialized model resources.
//
// A resource is the JSON document describing a trained model: its id, its
// build status and the model object itself. Resources are decoded and
// checked here before any tree is built, so that code scoring a model
// never sees one whose build did not finish.
//
// Example usage:
//
//	res, err := model.Decode(data)
//	if err != nil {
//		return err
//	}
//	if err := res.CheckFinished(); err != nil {
//		return err
//	}
//	// decode res.Object into the model-specific structure
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	scigoErrors "github.com/ezoic/sciforest/pkg/errors"
)

// State is the build state of a resource.
type State int

// Build states as reported by the modelling service.
const (
	Waiting State = iota
	Queued
	Started
	InProgress
	Summarized
	Finished
	Uploading
	Faulty   State = -1
	Unknown  State = -2
	Runnable State = -3
)

var stateNames = map[State]string{
	Waiting:    "waiting",
	Queued:     "queued",
	Started:    "started",
	InProgress: "in progress",
	Summarized: "summarized",
	Finished:   "finished",
	Uploading:  "uploading",
	Faulty:     "faulty",
	Unknown:    "unknown",
	Runnable:   "runnable",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Status is the build status of a resource.
type Status struct {
	Code    State   `json:"code"`
	Message string  `json:"message,omitempty"`
	Elapsed float64 `json:"elapsed,omitempty"`
}

// Resource is a decoded model resource.
type Resource struct {
	// ID is the resource id, such as "model/5f2a".
	ID string `json:"resource"`
	// Status is nil for bare model objects, which carry no build status.
	Status *Status `json:"status,omitempty"`
	// Object is the raw model object.
	Object json.RawMessage `json:"object"`
}

// Decode parses a resource document. Documents without an "object" key
// are taken to be the model object itself.
func Decode(data []byte) (*Resource, error) {
	var r Resource
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, scigoErrors.NewModelError("model.Decode", "invalid resource document",
			scigoErrors.Wrap(scigoErrors.ErrMalformedModel, err.Error()))
	}
	if len(r.Object) == 0 || string(r.Object) == "null" {
		r.Object = json.RawMessage(data)
	}
	return &r, nil
}

// ReadFile decodes the resource stored at path.
func ReadFile(path string) (*Resource, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, scigoErrors.Wrapf(err, "failed to read resource %s", path)
	}
	return Decode(data)
}

// IsFinished reports whether the resource can be used for predictions.
func (r *Resource) IsFinished() bool {
	return r.Status == nil || r.Status.Code == Finished
}

// CheckFinished returns an error matching ErrNotFinishedModel unless the
// resource build is finished.
//
// Example:
//
//	if err := res.CheckFinished(); errors.Is(err, scigoErrors.ErrNotFinishedModel) {
//		// retry once the build has finished
//	}
func (r *Resource) CheckFinished() error {
	if r.IsFinished() {
		return nil
	}
	return scigoErrors.NewModelError("model.CheckFinished",
		"resource "+r.ID+" is "+r.Status.Code.String(), scigoErrors.ErrNotFinishedModel)
}

// Kind returns the resource type prefix of the id: "model" for
// "model/5f2a".
func (r *Resource) Kind() string {
	kind, _, _ := strings.Cut(r.ID, "/")
	return kind
}

// Fingerprint returns the hex SHA-256 of the model object, identifying
// identical models regardless of their resource id.
func (r *Resource) Fingerprint() string {
	hash := sha256.Sum256(r.Object)
	return hex.EncodeToString(hash[:])
}
