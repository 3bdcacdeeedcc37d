package normalize

import (
	"time"

	"github.com/boddenberg/atendimento-webhook-go/internal/domain"

	"github.com/google/uuid"
)

// EndTimePolicy decides the end timestamp of an engagement whose payload
// carries none.
type EndTimePolicy string

const (
	// EndTimeNull stores open engagements with a null end time.
	EndTimeNull EndTimePolicy = "null"
	// EndTimeNow stamps the ingestion time as end time.
	EndTimeNow EndTimePolicy = "now"
)

// ParseEndTimePolicy accepts "null" and "now"; anything else is false.
func ParseEndTimePolicy(s string) (EndTimePolicy, bool) {
	switch EndTimePolicy(s) {
	case EndTimeNull, EndTimeNow:
		return EndTimePolicy(s), true
	}
	return "", false
}

// Options configures an Assembler. Start from DefaultOptions: NewAssembler
// fills unset paths, policy, location, clock and id generator, but takes
// Strict and AnsweredDefault as given.
type Options struct {
	Paths           EngagementPaths
	Strict          bool
	AnsweredDefault bool
	EndTimePolicy   EndTimePolicy
	Location        *time.Location
	Now             func() time.Time
	NewID           func() string
}

// DefaultOptions is strict validation, answered=true and null end times.
func DefaultOptions() Options {
	return Options{
		Paths:           DefaultEngagementPaths(),
		Strict:          true,
		AnsweredDefault: true,
		EndTimePolicy:   EndTimeNull,
		Location:        time.UTC,
		Now:             time.Now,
		NewID:           uuid.NewString,
	}
}

// Assembler builds canonical engagements from chat platform payloads. It
// performs no I/O and is safe for concurrent use.
type Assembler struct {
	opts Options
}

// NewAssembler creates an Assembler, filling unset options with defaults.
func NewAssembler(opts Options) *Assembler {
	def := DefaultOptions()
	if opts.Paths.Name == nil && opts.Paths.Phone == nil && opts.Paths.ID == nil {
		opts.Paths = def.Paths
	}
	if opts.EndTimePolicy == "" {
		opts.EndTimePolicy = def.EndTimePolicy
	}
	if opts.Location == nil {
		opts.Location = def.Location
	}
	if opts.Now == nil {
		opts.Now = def.Now
	}
	if opts.NewID == nil {
		opts.NewID = def.NewID
	}
	return &Assembler{opts: opts}
}

// Paths returns the candidate paths in effect.
func (a *Assembler) Paths() EngagementPaths {
	return a.opts.Paths
}

// Strict reports whether unidentified customers are rejected.
func (a *Assembler) Strict() bool {
	return a.opts.Strict
}

// Assemble maps p onto a canonical engagement. In strict mode a payload
// from which neither name nor phone can be resolved is rejected with
// *domain.ErrValidation; lenient mode keeps the sentinels.
func (a *Assembler) Assemble(p Payload) (*domain.Engagement, error) {
	paths := a.opts.Paths
	now := a.opts.Now()

	rec := &domain.Engagement{
		CustomerName:  domain.UnidentifiedName,
		CustomerPhone: domain.PhoneNotProvided,
		Answered:      a.opts.AnsweredDefault,
		CreatedAt:     ISO(now),
	}

	if id, ok := p.FirstString(paths.ID...); ok {
		rec.ID = id
	} else {
		rec.ID = a.opts.NewID()
	}

	if name, ok := p.FirstString(paths.Name...); ok {
		rec.CustomerName = name
	}
	if phone, ok := p.FirstString(paths.Phone...); ok {
		rec.CustomerPhone = phone
	}
	if a.opts.Strict && !rec.HasKnownCustomer() {
		return nil, &domain.ErrValidation{
			Field:   "name,phone",
			Message: "customer name and phone are both missing from the payload",
		}
	}

	rawStatus, _ := p.FirstString(paths.Status...)
	rec.Status = Status(rawStatus)

	if answered, ok := p.FirstBool(paths.Answered...); ok {
		rec.Answered = answered
	}

	if start, ok := p.FirstTime(paths.StartTime...); ok {
		rec.StartTime = ISO(start)
	} else {
		rec.StartTime = ISO(now)
	}
	if end, ok := p.FirstTime(paths.EndTime...); ok {
		s := ISO(end)
		rec.EndTime = &s
	} else if a.opts.EndTimePolicy == EndTimeNow {
		s := ISO(now)
		rec.EndTime = &s
	}

	primary, _ := p.FirstString(paths.PrimaryMessage...)
	rec.CleanMessage = Sanitize(primary)
	rec.Messages = a.Messages(p, rec.CleanMessage, now)
	rec.Tags = Tags(p, paths.Tags)

	return rec, nil
}
