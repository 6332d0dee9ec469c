// Package forms accepts contact and registration submissions, validates them
// and either delivers them right away or defers them to the offline queue.
package forms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/leonardcser/web-offline/internal/logger"
	"github.com/leonardcser/web-offline/internal/queue"
)

const maxFormMemory = 1 << 20

var successMessages = map[string]string{
	queue.Contact:      "Message sent successfully! We will get back to you soon.",
	queue.Registration: "Application submitted successfully! Our admissions team will contact you within 2-3 business days.",
}

// Enqueuer stores a submission for later replay.
type Enqueuer interface {
	Enqueue(ctx context.Context, name string, fields map[string]string) (queue.Submission, error)
}

// Intake is the HTTP endpoint for form posts.
type Intake struct {
	queue   Enqueuer
	deliver queue.Deliverer
	now     func() time.Time
}

func NewIntake(q Enqueuer, d queue.Deliverer) *Intake {
	return &Intake{queue: q, deliver: d, now: time.Now}
}

// Register mounts the intake on mux.
func (in *Intake) Register(mux *http.ServeMux) {
	mux.Handle("POST /api/forms/{form}", in)
}

type intakeResponse struct {
	Message string `json:"message,omitempty"`
	Errors  Errors `json:"errors,omitempty"`
	Queued  bool   `json:"queued,omitempty"`
	ID      uint64 `json:"id,omitempty"`
	SyncTag string `json:"sync_tag,omitempty"`
}

func (in *Intake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("form")
	tag, err := queue.SyncTag(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeJSON(w, http.StatusBadRequest, intakeResponse{Message: err.Error()})
		return
	}
	fields := make(map[string]string, len(r.PostForm))
	for k, vs := range r.PostForm {
		if len(vs) > 0 {
			fields[k] = vs[0]
		}
	}

	if errs := Validate(name, fields, in.now()); len(errs) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, intakeResponse{Errors: errs})
		return
	}
	logger.Infof("%s", StaffNotice(name, fields))

	sub := queue.Submission{Queue: name, Fields: fields, QueuedAt: in.now().UTC()}
	err = in.deliver.Deliver(r.Context(), sub)
	if err == nil {
		writeJSON(w, http.StatusOK, intakeResponse{Message: successMessages[name]})
		return
	}
	logger.Warnf("Delivery of %s form not confirmed, queueing: %v", name, err)

	queued, err := in.queue.Enqueue(r.Context(), name, fields)
	if err != nil {
		logger.Errorf("Could not queue %s form: %v", name, err)
		writeJSON(w, http.StatusInternalServerError, intakeResponse{Message: "submission could not be saved"})
		return
	}
	writeJSON(w, http.StatusAccepted, intakeResponse{
		Message: "You appear to be offline. Your submission has been saved and will be sent automatically.",
		Queued:  true,
		ID:      queued.ID,
		SyncTag: tag,
	})
}

// StaffNotice is the text staff are notified with for a new submission.
func StaffNotice(name string, f map[string]string) string {
	switch name {
	case queue.Registration:
		return fmt.Sprintf("New student registration:\n\nName: %s %s\nProgram: %s\nParent: %s\nPhone: %s",
			f["firstName"], f["lastName"], f["program"], f["parentName"], f["parentPhone"])
	case queue.Contact:
		return fmt.Sprintf("New contact inquiry:\n\nName: %s\nEmail: %s\nSubject: %s\nMessage: %s",
			f["contactName"], f["contactEmail"], f["contactSubject"], f["contactMessage"])
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
