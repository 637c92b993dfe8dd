package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/julianstephens/habitloop/internal/constants"
)

// Habit is one tracked activity instance owned by a single user.
type Habit struct {
	ID          string      `json:"id" db:"id"`
	UserID      string      `json:"userId" db:"user_id"`
	Title       string      `json:"title" db:"title"`
	Description string      `json:"description" db:"description"`
	InputText   string      `json:"inputText" db:"input_text"`
	ParsedData  ParsedItems `json:"parsedData" db:"parsed_data"`
	CompletedAt *time.Time  `json:"completedAt" db:"completed_at"`
	Streak      int         `json:"streak" db:"streak"`
	Version     int64       `json:"-" db:"version"`
	CreatedAt   time.Time   `json:"createdAt" db:"created_at"`
}

// Category returns the category of the first parsed item, or "other".
func (h Habit) Category() constants.Category {
	if len(h.ParsedData) == 0 || h.ParsedData[0].Category == "" {
		return constants.CategoryOther
	}
	return h.ParsedData[0].Category
}

// ParsedItem is one activity extracted from free text.
type ParsedItem struct {
	Activity   string             `json:"activity"`
	Quantity   float64            `json:"quantity"`
	Unit       string             `json:"unit"`
	Category   constants.Category `json:"category"`
	Confidence float64            `json:"confidence"`
}

// ParsedItems is stored as a JSON array column.
type ParsedItems []ParsedItem

// Value implements driver.Valuer.
func (p ParsedItems) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (p *ParsedItems) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*p = ParsedItems{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into ParsedItems", src)
	}

	if len(data) == 0 {
		*p = ParsedItems{}
		return nil
	}

	var items ParsedItems
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("failed to decode parsed data: %w", err)
	}
	if items == nil {
		items = ParsedItems{}
	}
	*p = items
	return nil
}
