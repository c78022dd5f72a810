// Package pipeline runs one image upload through validation, temporary
// storage, classification and history recording.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"log"
	"time"

	"onion-detect/internal/inference"
	"onion-detect/internal/models"
	"onion-detect/internal/uploads"
)

type State string

const (
	StateReceived   State = "received"
	StateValidated  State = "validated"
	StateStored     State = "stored"
	StateClassified State = "classified"
	StateRecorded   State = "recorded"
	StateCompleted  State = "completed"
	StateAborted    State = "aborted"
)

type HistoryStore interface {
	SaveDetection(ctx context.Context, rec *models.HistoryRecord) error
}

type EventPublisher interface {
	PublishDetection(ctx context.Context, ev models.DetectionEvent) error
}

// Meta describes the caller of one run.
type Meta struct {
	ClientIP  string
	UserAgent string
}

// Report is what a run leaves behind. Trace lists every state entered, in
// order; Recorded is absent when the history write was skipped or failed.
type Report struct {
	Result      *models.DetectionResult
	State       State
	Trace       []State
	Fingerprint string
	TempPath    string
}

func (r *Report) advance(s State) {
	r.State = s
	r.Trace = append(r.Trace, s)
}

type Pipeline struct {
	validator  *Validator
	temp       *uploads.TempStore
	classifier inference.Classifier
	history    HistoryStore
	events     EventPublisher
	load       func(path string) (image.Image, error)
	now        func() time.Time
}

type Option func(*Pipeline)

func WithHistory(h HistoryStore) Option {
	return func(p *Pipeline) { p.history = h }
}

func WithEvents(e EventPublisher) Option {
	return func(p *Pipeline) { p.events = e }
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func New(v *Validator, temp *uploads.TempStore, c inference.Classifier, opts ...Option) *Pipeline {
	p := &Pipeline{
		validator:  v,
		temp:       temp,
		classifier: c,
		load:       inference.LoadImage,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) Validator() *Validator {
	return p.validator
}

// Run executes the pipeline for req. The returned error is always a *Error
// when non-nil. The temporary file, if one was written, is gone by the time
// Run returns.
func (p *Pipeline) Run(ctx context.Context, req *models.UploadRequest, meta Meta) (rep *Report, err error) {
	const op = "pipeline.Run"

	start := p.now()
	rep = &Report{}
	rep.advance(StateReceived)
	defer func() {
		if err != nil {
			rep.advance(StateAborted)
			return
		}
		rep.advance(StateCompleted)
	}()

	if err := p.validator.Validate(req); err != nil {
		return rep, err
	}
	rep.advance(StateValidated)

	rep.Fingerprint = uploads.Fingerprint(req.Data)
	tf, err := p.temp.Save(req.Filename, req.Data)
	if err != nil {
		log.Printf("%s: save upload: %v", op, err)
		return rep, Internal(KindStorage, err)
	}
	rep.TempPath = tf.Path
	defer func() {
		if err := tf.Release(); err != nil {
			log.Printf("%s: warning: could not remove temporary file: %v", op, err)
			return
		}
		log.Printf("%s: temporary file removed: %s", op, tf.Path)
	}()
	log.Printf("%s: file saved: %s", op, tf.Path)
	rep.advance(StateStored)

	result, err := p.classify(ctx, tf.Path)
	if err != nil {
		log.Printf("%s: classify: %v", op, err)
		return rep, Internal(KindInference, err)
	}
	rep.advance(StateClassified)

	elapsed := p.now().Sub(start).Seconds()
	result.ProcessingTime = inference.RoundTo(elapsed, 2)

	rec := &models.HistoryRecord{
		Timestamp:      p.now(),
		Disease:        result.Disease,
		Confidence:     result.Confidence,
		ImageHash:      rep.Fingerprint,
		UserAgent:      meta.UserAgent,
		IPAddress:      meta.ClientIP,
		ProcessingTime: elapsed,
	}
	if p.record(ctx, rec) {
		rep.advance(StateRecorded)
		p.publish(ctx, rec)
	}

	rep.Result = result
	return rep, nil
}

func (p *Pipeline) classify(ctx context.Context, path string) (res *models.DetectionResult, err error) {
	const op = "pipeline.classify"

	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("%s: classifier panic: %v", op, r)
		}
	}()

	img, derr := p.load(path)
	if derr != nil {
		// The mock classifier does not need pixels; keep going.
		log.Printf("%s: error opening image: %v", op, derr)
	}
	res, err = p.classifier.Classify(ctx, inference.Input{Path: path, Image: img})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if res == nil {
		return nil, fmt.Errorf("%s: classifier returned no result", op)
	}
	return res, nil
}

// record appends rec to the history store. Failures are logged and
// reported as false; they never fail the run.
func (p *Pipeline) record(ctx context.Context, rec *models.HistoryRecord) bool {
	const op = "pipeline.record"
	if p.history == nil {
		return false
	}
	if err := p.history.SaveDetection(ctx, rec); err != nil {
		log.Printf("%s: error saving detection history: %v", op, err)
		return false
	}
	log.Printf("%s: detection history saved (id=%d)", op, rec.ID)
	return true
}

func (p *Pipeline) publish(ctx context.Context, rec *models.HistoryRecord) {
	const op = "pipeline.publish"
	if p.events == nil {
		return
	}
	ev := models.DetectionEvent{
		HistoryID:  rec.ID,
		Disease:    rec.Disease,
		Confidence: rec.Confidence,
		ImageHash:  rec.ImageHash,
		Timestamp:  rec.Timestamp,
	}
	if err := p.events.PublishDetection(ctx, ev); err != nil {
		log.Printf("%s: error publishing detection event: %v", op, err)
	}
}
