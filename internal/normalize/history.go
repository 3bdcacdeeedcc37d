package normalize

import (
	"time"

	"github.com/boddenberg/atendimento-webhook-go/internal/domain"

	"github.com/tidwall/gjson"
)

// clockLayout renders message times the way the dashboard displays them.
const clockLayout = "15:04:05"

// Messages builds the ordered message history of an engagement.
//
// The collection is the first candidate path holding a non-empty array.
// Without one, a non-empty cleanMessage becomes a single entry stamped
// with now; otherwise the history is empty. The result is never nil.
func (a *Assembler) Messages(p Payload, cleanMessage string, now time.Time) []domain.Message {
	if entries, ok := firstArray(p, a.opts.Paths.Messages, true); ok {
		out := make([]domain.Message, 0, len(entries))
		for _, entry := range entries {
			out = append(out, a.message(entry))
		}
		return out
	}

	if cleanMessage != "" {
		return []domain.Message{{
			Time:    now.In(a.opts.Location).Format(clockLayout),
			Content: cleanMessage,
		}}
	}
	return []domain.Message{}
}

func (a *Assembler) message(entry gjson.Result) domain.Message {
	switch {
	case entry.Type == gjson.String:
		content := entry.Str
		if content == "" {
			content = domain.EmptyMessage
		}
		return domain.Message{Time: domain.TimeUnavailable, Content: content}

	case entry.IsObject():
		fields := Payload{raw: []byte(entry.Raw)}
		msg := domain.Message{Time: domain.TimeUnavailable, Content: domain.EmptyMessage}

		if r, ok := fields.First(a.opts.Paths.MessageTime...); ok {
			if t, ok := parseTime(r); ok {
				msg.Time = t.In(a.opts.Location).Format(clockLayout)
			} else {
				msg.Time = r.String()
			}
		}
		if content, ok := fields.FirstString(a.opts.Paths.MessageContent...); ok {
			msg.Content = content
		}
		return msg

	default:
		// numbers, booleans, nested arrays
		return domain.Message{Time: domain.TimeUnavailable, Content: entry.Raw}
	}
}

// Tags returns the first candidate holding an array as strings,
// unvalidated and in source order. Candidates with any other value are
// skipped. No array yields an empty, non-nil slice.
func Tags(p Payload, paths []string) []string {
	items, ok := firstArray(p, paths, false)
	if !ok {
		return []string{}
	}
	tags := make([]string, 0, len(items))
	for _, item := range items {
		tags = append(tags, item.String())
	}
	return tags
}

// firstArray returns the elements of the first candidate that is a JSON
// array, skipping empty arrays when nonEmpty is set.
func firstArray(p Payload, paths []string, nonEmpty bool) ([]gjson.Result, bool) {
	for _, path := range paths {
		r := p.Get(path)
		if !r.IsArray() {
			continue
		}
		items := r.Array()
		if nonEmpty && len(items) == 0 {
			continue
		}
		return items, true
	}
	return nil, false
}
