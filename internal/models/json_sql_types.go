package models

import (
	"database/sql"
	"encoding/json"
	"strings"
)

// NullString - обертка для sql.NullString для правильной обработки JSON.
type NullString struct {
	sql.NullString
}

// NewNullString возвращает валидное значение только для непустой (после trim) строки.
func NewNullString(s string) NullString {
	s = strings.TrimSpace(s)
	if s == "" {
		return NullString{}
	}
	return NullString{sql.NullString{String: s, Valid: true}}
}

// MarshalJSON реализует интерфейс json.Marshaler для NullString.
func (ns NullString) MarshalJSON() ([]byte, error) {
	if !ns.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(ns.String)
}

// UnmarshalJSON реализует интерфейс json.Unmarshaler для NullString.
func (ns *NullString) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s != nil {
		ns.String = *s
		ns.Valid = true
	} else {
		ns.Valid = false
	}
	return nil
}
