package normalize

// EngagementPaths lists, per canonical engagement field, the gjson paths
// consulted in priority order.
type EngagementPaths struct {
	ID             []string `toml:"id"`
	Name           []string `toml:"name"`
	Phone          []string `toml:"phone"`
	Status         []string `toml:"status"`
	Answered       []string `toml:"answered"`
	StartTime      []string `toml:"start_time"`
	EndTime        []string `toml:"end_time"`
	Messages       []string `toml:"messages"`
	MessageTime    []string `toml:"message_time"`
	MessageContent []string `toml:"message_content"`
	Tags           []string `toml:"tags"`
	PrimaryMessage []string `toml:"primary_message"`
}

// VisitPaths lists, per canonical visit field, the gjson paths consulted in
// priority order.
type VisitPaths struct {
	ID             []string `toml:"id"`
	OriginURL      []string `toml:"origin_url"`
	IPAddress      []string `toml:"ip_address"`
	UserAgent      []string `toml:"user_agent"`
	PageVisited    []string `toml:"page_visited"`
	DwellTime      []string `toml:"dwell_time"`
	TrafficSource  []string `toml:"traffic_source"`
	Campaign       []string `toml:"campaign"`
	Medium         []string `toml:"medium"`
	Term           []string `toml:"term"`
	DeviceType     []string `toml:"device_type"`
	Browser        []string `toml:"browser"`
	Location       []string `toml:"location"`
	Converted      []string `toml:"converted"`
	ActionTaken    []string `toml:"action_taken"`
	VisitTimestamp []string `toml:"visit_timestamp"`
}

// DefaultEngagementPaths covers the chat platform's payload shapes seen so
// far: flat v1 bodies, the chat-wrapped v2 bodies and conversation
// envelopes.
func DefaultEngagementPaths() EngagementPaths {
	return EngagementPaths{
		ID:             []string{"id", "chatId", "conversationId", "chat.id", "conversation.id"},
		Name:           []string{"name", "customer_name", "nome", "contact.name", "chat.contact.name", "conversation.contact.name", "customer.name", "visitor.name"},
		Phone:          []string{"phone", "customer_phone", "telefone", "contact.phone", "contact.phone_number", "chat.contact.phone", "conversation.contact.phone", "customer.phone", "visitor.phone"},
		Status:         []string{"status", "chat.status", "conversation.status", "state"},
		Answered:       []string{"answered", "respondeu"},
		StartTime:      []string{"start_time", "started_at", "data_inicio", "created_at", "chat.created_at", "conversation.created_at"},
		EndTime:        []string{"end_time", "ended_at", "data_fim", "closed_at", "chat.closed_at", "conversation.closed_at"},
		Messages:       []string{"messages", "chat.messages", "conversation.messages", "mensagens"},
		MessageTime:    []string{"time", "timestamp", "created_at", "sent_at", "hora"},
		MessageContent: []string{"content", "text", "message", "body", "conteudo"},
		Tags:           []string{"tags", "chat.tags", "conversation.tags", "labels"},
		PrimaryMessage: []string{"message", "mensagem", "text", "content", "chat.last_message", "conversation.last_message"},
	}
}

// DefaultVisitPaths covers the WordPress/Elementor tracker payloads.
func DefaultVisitPaths() VisitPaths {
	return VisitPaths{
		ID:             []string{"id"},
		OriginURL:      []string{"url", "page_url"},
		IPAddress:      []string{"ip", "visitor_ip"},
		UserAgent:      []string{"user_agent", "userAgent"},
		PageVisited:    []string{"page", "page_title", "title"},
		DwellTime:      []string{"time_spent", "duration"},
		TrafficSource:  []string{"source", "traffic_source", "utm_source"},
		Campaign:       []string{"campaign", "utm_campaign"},
		Medium:         []string{"medium", "utm_medium"},
		Term:           []string{"term", "utm_term"},
		DeviceType:     []string{"device", "device_type"},
		Browser:        []string{"browser"},
		Location:       []string{"location", "city"},
		Converted:      []string{"converted"},
		ActionTaken:    []string{"action", "event"},
		VisitTimestamp: []string{"timestamp"},
	}
}

// Merge returns p with the non-empty lists of extra placed ahead of the
// built-in candidates, so configured paths win.
func (p EngagementPaths) Merge(extra EngagementPaths) EngagementPaths {
	return EngagementPaths{
		ID:             prepend(extra.ID, p.ID),
		Name:           prepend(extra.Name, p.Name),
		Phone:          prepend(extra.Phone, p.Phone),
		Status:         prepend(extra.Status, p.Status),
		Answered:       prepend(extra.Answered, p.Answered),
		StartTime:      prepend(extra.StartTime, p.StartTime),
		EndTime:        prepend(extra.EndTime, p.EndTime),
		Messages:       prepend(extra.Messages, p.Messages),
		MessageTime:    prepend(extra.MessageTime, p.MessageTime),
		MessageContent: prepend(extra.MessageContent, p.MessageContent),
		Tags:           prepend(extra.Tags, p.Tags),
		PrimaryMessage: prepend(extra.PrimaryMessage, p.PrimaryMessage),
	}
}

// Merge returns p with the non-empty lists of extra placed ahead of the
// built-in candidates.
func (p VisitPaths) Merge(extra VisitPaths) VisitPaths {
	return VisitPaths{
		ID:             prepend(extra.ID, p.ID),
		OriginURL:      prepend(extra.OriginURL, p.OriginURL),
		IPAddress:      prepend(extra.IPAddress, p.IPAddress),
		UserAgent:      prepend(extra.UserAgent, p.UserAgent),
		PageVisited:    prepend(extra.PageVisited, p.PageVisited),
		DwellTime:      prepend(extra.DwellTime, p.DwellTime),
		TrafficSource:  prepend(extra.TrafficSource, p.TrafficSource),
		Campaign:       prepend(extra.Campaign, p.Campaign),
		Medium:         prepend(extra.Medium, p.Medium),
		Term:           prepend(extra.Term, p.Term),
		DeviceType:     prepend(extra.DeviceType, p.DeviceType),
		Browser:        prepend(extra.Browser, p.Browser),
		Location:       prepend(extra.Location, p.Location),
		Converted:      prepend(extra.Converted, p.Converted),
		ActionTaken:    prepend(extra.ActionTaken, p.ActionTaken),
		VisitTimestamp: prepend(extra.VisitTimestamp, p.VisitTimestamp),
	}
}

// Describe maps field names to their candidate paths for the
// documentation-as-response probe.
func (p EngagementPaths) Describe() map[string][]string {
	return map[string][]string{
		"id":              p.ID,
		"name":            p.Name,
		"phone":           p.Phone,
		"status":          p.Status,
		"answered":        p.Answered,
		"start_time":      p.StartTime,
		"end_time":        p.EndTime,
		"messages":        p.Messages,
		"message_time":    p.MessageTime,
		"message_content": p.MessageContent,
		"tags":            p.Tags,
		"primary_message": p.PrimaryMessage,
	}
}

// Describe maps field names to their candidate paths.
func (p VisitPaths) Describe() map[string][]string {
	return map[string][]string{
		"id":              p.ID,
		"origin_url":      p.OriginURL,
		"ip_address":      p.IPAddress,
		"user_agent":      p.UserAgent,
		"page_visited":    p.PageVisited,
		"dwell_time":      p.DwellTime,
		"traffic_source":  p.TrafficSource,
		"campaign":        p.Campaign,
		"medium":          p.Medium,
		"term":            p.Term,
		"device_type":     p.DeviceType,
		"browser":         p.Browser,
		"location":        p.Location,
		"converted":       p.Converted,
		"action_taken":    p.ActionTaken,
		"visit_timestamp": p.VisitTimestamp,
	}
}

func prepend(extra, base []string) []string {
	out := make([]string, 0, len(extra)+len(base))
	seen := make(map[string]bool, len(extra)+len(base))
	for _, list := range [][]string{extra, base} {
		for _, path := range list {
			if path == "" || seen[path] {
				continue
			}
			seen[path] = true
			out = append(out, path)
		}
	}
	return out
}
