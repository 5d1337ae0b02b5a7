package domain

import (
	"time"
	"unicode/utf8"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "open"
	TicketStatusClosed TicketStatus = "closed"
)

// TitleMaxLength is the column width of tickets.title.
const TitleMaxLength = 255

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID          int64
	Title       string
	Description string
	Status      TicketStatus
	CreatedBy   int64
	CreatedAt   time.Time
	ClosedAt    *time.Time
}

// IsOpen reports whether the ticket can still be closed.
func (t *Ticket) IsOpen() bool {
	return t.Status == TicketStatusOpen
}

// TicketView is a ticket joined with its creator.
type TicketView struct {
	Ticket
	CreatorName  string
	CreatorEmail string
}

// TicketStats holds the per-status counts shown above the list.
type TicketStats struct {
	Total  int
	Open   int
	Closed int
}

// StatusFilter selects which tickets a listing returns.
type StatusFilter string

const (
	FilterAll    StatusFilter = "all"
	FilterOpen   StatusFilter = "open"
	FilterClosed StatusFilter = "closed"
)

// ParseStatusFilter maps a query value to a filter; anything unrecognised means all.
func ParseStatusFilter(raw string) StatusFilter {
	switch StatusFilter(raw) {
	case FilterOpen:
		return FilterOpen
	case FilterClosed:
		return FilterClosed
	default:
		return FilterAll
	}
}

// Status returns the status the filter restricts to, or false for all.
func (f StatusFilter) Status() (TicketStatus, bool) {
	switch f {
	case FilterOpen:
		return TicketStatusOpen, true
	case FilterClosed:
		return TicketStatusClosed, true
	default:
		return "", false
	}
}

// TitleLength counts characters, not bytes, to match VARCHAR(255).
func TitleLength(title string) int {
	return utf8.RuneCountInString(title)
}
