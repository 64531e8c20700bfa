package page

import "github.com/google/uuid"

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

type noticeKind int

const (
	kindGate noticeKind = iota
	kindList
	kindValidation
	kindSubmission
)

// Notice is a dismissible banner shown above the form.
type Notice struct {
	ID          string   `json:"id"`
	Level       Level    `json:"level"`
	Message     string   `json:"message"`
	Fields      []string `json:"fields,omitempty"`
	Dismissible bool     `json:"dismissible"`

	kind noticeKind
}

// put replaces any notice of the same kind with n. Must be called with mu held.
func (p *Page) put(kind noticeKind, level Level, message string, fields ...string) {
	p.drop(kind)
	p.notices = append(p.notices, Notice{
		ID:          uuid.NewString(),
		Level:       level,
		Message:     message,
		Fields:      fields,
		Dismissible: true,
		kind:        kind,
	})
}

// drop must be called with mu held.
func (p *Page) drop(kind noticeKind) {
	kept := p.notices[:0]
	for _, n := range p.notices {
		if n.kind != kind {
			kept = append(kept, n)
		}
	}
	p.notices = kept
}

// Dismiss removes the notice with id and reports whether it existed.
func (p *Page) Dismiss(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, n := range p.notices {
		if n.ID == id && n.Dismissible {
			p.notices = append(p.notices[:i], p.notices[i+1:]...)
			return true
		}
	}
	return false
}
