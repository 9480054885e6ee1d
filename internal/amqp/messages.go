package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bilancio/internal/core"

	"github.com/google/uuid"
)

var ErrInvalidMessage = errors.New("invalid budget event")

// BudgetEventMessage announces that a declaration changed. It carries only
// identifiers; consumers read the current state from the store.
type BudgetEventMessage struct {
	ID            uuid.UUID `json:"id"`
	Kind          string    `json:"kind"`
	DeclarationID int64     `json:"declaration_id"`
	Year          int       `json:"year"`
	Month         int       `json:"month"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewBudgetEventMessage(kind string, d core.Declaration) *BudgetEventMessage {
	return &BudgetEventMessage{
		ID:            uuid.New(),
		Kind:          kind,
		DeclarationID: d.ID,
		Year:          d.Year,
		Month:         d.Month,
		Timestamp:     time.Now().UTC(),
	}
}

// YearMonth returns the month the event refers to.
func (m *BudgetEventMessage) YearMonth() core.YearMonth {
	return core.NewYearMonth(m.Year, m.Month)
}

func (m *BudgetEventMessage) Validate() error {
	if m.ID == uuid.Nil {
		return fmt.Errorf("%w: missing id", ErrInvalidMessage)
	}
	if m.Kind == "" {
		return fmt.Errorf("%w: missing kind", ErrInvalidMessage)
	}
	if err := m.YearMonth().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return nil
}

func (m *BudgetEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BudgetEventMessageFromJSON decodes and validates a message body.
func BudgetEventMessageFromJSON(data []byte) (*BudgetEventMessage, error) {
	var msg BudgetEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
